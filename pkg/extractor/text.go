package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// skipped elements never contribute rendered text.
var skipped = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "head": {}, "svg": {}, "iframe": {},
}

// blocks are separated from their neighbours by a line break, like innerText.
var blocks = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "dd": {}, "div": {},
	"dl": {}, "dt": {}, "figcaption": {}, "figure": {}, "footer": {}, "form": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "header": {},
	"hr": {}, "li": {}, "main": {}, "nav": {}, "ol": {}, "p": {}, "pre": {},
	"section": {}, "table": {}, "tr": {}, "td": {}, "th": {}, "ul": {}, "body": {},
}

// innerText approximates the rendered text of the selection's first node.
func innerText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	walk(&b, s.Nodes[0])
	return b.String()
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if _, ok := skipped[n.Data]; ok {
			return
		}
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
	}

	_, block := blocks[n.Data]
	block = block && n.Type == html.ElementNode
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
	if block {
		b.WriteString("\n")
	}
}
