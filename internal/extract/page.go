// Package extract parses fetched product pages: schema.org Product
// objects embedded as JSON-LD, plus HTML heuristics for the fabric /
// materials section.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Page is a parsed product page: the HTML document plus every decoded
// JSON-LD object whose declared type is Product.
type Page struct {
	doc      *goquery.Document
	products []map[string]any
}

// Parse builds a Page from a fetched body. Individual malformed JSON-LD
// blocks are skipped; only an unparsable HTML document is an error.
func Parse(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	p := &Page{doc: doc}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return
		}
		items, ok := decoded.([]any)
		if !ok {
			items = []any{decoded}
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if isProductType(obj["@type"]) {
				p.products = append(p.products, obj)
			}
		}
	})
	return p, nil
}

// isProductType accepts the scalar "Product" form and the single-element
// list form emitted by some templating systems.
func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Product"
	case []any:
		if len(t) != 1 {
			return false
		}
		s, ok := t[0].(string)
		return ok && s == "Product"
	default:
		return false
	}
}

// normText collapses runs of whitespace and trims the result.
func normText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// nodeText renders a selection's text with spaces between text nodes, so
// "80%<span>Nylon</span>" does not collapse into one token.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return normText(strings.Join(parts, " "))
}
