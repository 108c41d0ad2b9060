package extractor

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	doc.Url, _ = url.Parse("https://example.com/post")
	return doc
}

func TestSelectorExtractor_Extract(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "article wins over siblings",
			html: `<html><body><nav>Menu</nav><article><h1>Title</h1><p>Body text</p></article><footer>Foot</footer></body></html>`,
			want: "Title Body text",
		},
		{
			name: "first article only",
			html: `<body><article>First</article><article>Second</article></body>`,
			want: "First",
		},
		{
			name: "main before other containers",
			html: `<body><div class="content">Other</div><main>Main text</main></body>`,
			want: "Main text",
		},
		{
			name: "id content container",
			html: `<body><div class="sidebar">Side</div><div id="content">Main text</div></body>`,
			want: "Main text",
		},
		{
			name: "main-content before content",
			html: `<body><div class="content">Wrapper</div><div class="main-content">Real</div></body>`,
			want: "Real",
		},
		{
			name: "id content before class content",
			html: `<body><div class="content">Wrapper</div><div id="content">Real</div></body>`,
			want: "Real",
		},
		{
			name: "generic containers before blog containers",
			html: `<body><div class="post-content">Post</div><div class="content">Generic</div></body>`,
			want: "Generic",
		},
		{
			name: "body fallback",
			html: `<html><head><title>x</title></head><body><div class="sidebar">Side</div><p>Para</p></body></html>`,
			want: "Side Para",
		},
		{
			name: "scripts and styles ignored",
			html: `<body><p>One</p><script>var x = 1;</script><style>p{}</style><p>Two</p></body>`,
			want: "One Two",
		},
		{
			name: "line breaks and blocks separate words",
			html: `<body><p>alpha<br>beta</p><ul><li>gamma</li><li>delta</li></ul></body>`,
			want: "alpha beta gamma delta",
		},
		{
			name: "whitespace collapsed",
			html: "<body>  Hello\n\nWorld  </body>",
			want: "Hello World",
		},
	}

	ex := &SelectorExtractor{Selectors: MainContentSelectors}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.Extract(parseDoc(t, tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectorExtractor_EmptyContent(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty body", `<html><body></body></html>`},
		{"whitespace only", "<body>  \n\t   </body>"},
		{"empty article", `<body><article>   </article><p>ignored</p></body>`},
		{"only script", `<body><script>alert(1)</script></body>`},
	}

	ex := &SelectorExtractor{Selectors: MainContentSelectors}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Extract(parseDoc(t, tt.html))
			require.Error(t, err)

			var extractErr *models.ExtractionError
			require.True(t, errors.As(err, &extractErr), "want ExtractionError, got %T", err)
			assert.ErrorIs(t, err, models.ErrNoContent)
			assert.Equal(t, "https://example.com/post", extractErr.URL)
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"  Hello\n\nWorld  ", "Hello World"},
		{"a\r\n\r\nb", "a b"},
		{"a\t\tb", "a b"},
		{"a  b", "a b"},
		{"中文\u3000内容", "中文 内容"},
		{"\ufeffbom", "bom"},
		{"already clean", "already clean"},
	}

	for _, tt := range tests {
		got := Clean(tt.in)
		assert.Equal(t, tt.want, got, "Clean(%q)", tt.in)
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		" x ",
		"line1\n\n\nline2\r\nline3",
		"\t tabs \t and  spaces ",
		" mixed unicode　space sep",
		"no-op",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestTitle(t *testing.T) {
	doc := parseDoc(t, "<html><head><title>  My \n Page </title></head><body>x</body></html>")
	assert.Equal(t, "My Page", Title(doc))

	doc = parseDoc(t, "<body>no title</body>")
	assert.Equal(t, "", Title(doc))
}

func TestNew(t *testing.T) {
	ex, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &SelectorExtractor{}, ex)

	ex, err = New("Readability")
	require.NoError(t, err)
	assert.IsType(t, &ReadabilityExtractor{}, ex)

	_, err = New("magic")
	assert.Error(t, err)
}

func TestReadabilityExtractor_Extract(t *testing.T) {
	para := strings.Repeat("The quick brown fox studies distributed systems in great detail every single day. ", 12)
	html := `<html><head><title>Fox notes</title></head><body>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<article><h1>Fox notes</h1><p>` + para + `</p><p>` + para + `</p><p>` + para + `</p></article>
		<footer>Copyright footer</footer>
	</body></html>`

	got, err := (&ReadabilityExtractor{}).Extract(parseDoc(t, html))
	require.NoError(t, err)
	assert.Contains(t, got, "distributed systems in great detail")
	assert.Equal(t, Clean(got), got)
}
