package analysis

import (
	"sync"

	"github.com/pemistahl/lingua-go"
)

// languageSample bounds how much text is fed to the detector.
const languageSample = 2000

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.Chinese, lingua.English, lingua.Japanese, lingua.Korean,
				lingua.German, lingua.French, lingua.Spanish, lingua.Portuguese,
				lingua.Italian, lingua.Russian,
			).
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// DetectLanguage returns the English name of the text's language, or "" when
// the detector is not confident.
func DetectLanguage(text string) string {
	runes := []rune(text)
	if len(runes) > languageSample {
		runes = runes[:languageSample]
	}
	if len(runes) == 0 {
		return ""
	}
	if lang, ok := languageDetector().DetectLanguageOf(string(runes)); ok {
		return lang.String()
	}
	return ""
}
