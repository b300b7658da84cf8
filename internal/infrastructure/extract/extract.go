package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"depradar/internal/ports"
)

// boilerplate holds elements that never carry article body text.
var boilerplate = []string{"script", "style", "noscript", "iframe", "nav", "header", "footer", "aside", "form"}

// ArticleExtractor pulls the primary readable text out of an HTML page,
// dropping navigation and markup. An empty return means the page had no
// usable article text.
type ArticleExtractor struct{}

var _ ports.Extractor = ArticleExtractor{}

// Extract prefers <article>, then <main>, then the whole body. Paragraph
// text is joined with blank lines; whitespace inside paragraphs collapses.
func (ArticleExtractor) Extract(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find(strings.Join(boilerplate, ", ")).Remove()

	for _, root := range []string{"article", "main", "body"} {
		sel := doc.Find(root).First()
		if sel.Length() == 0 {
			continue
		}
		if text := paragraphText(sel); text != "" {
			return text
		}
	}

	return ""
}

func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p, li, h1, h2, h3, pre").Each(func(_ int, node *goquery.Selection) {
		if text := strings.Join(strings.Fields(node.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	// Pages without paragraph structure still get their flat text.
	return strings.Join(strings.Fields(sel.Text()), " ")
}
