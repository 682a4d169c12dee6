package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

// Multilingual headings that introduce a fabric / materials section
// (English, Italian, Spanish, French, German).
var fabricHeadRe = regexp.MustCompile(`(?i)^(` +
	`fabric details|materials?|material details|fabric` +
	`|dettagli del tessuto|tessuto|materiali` +
	`|detalles del tejido|tejido|material(es)?` +
	`|détails du tissu|tissu|mati(è|e)res?` +
	`|material(ien)?` +
	`)$`)

// Looser stem match used for heading tags.
var fabricLooseRe = regexp.MustCompile(`(?i)(fabric|tessut|material|tissu|tejid)`)

// additionalProperty names worth keeping; wider than the heading stems
// because retailers file composition under part names too.
var fabricPropNameRe = regexp.MustCompile(`(?i)(fabric|tessut|material|tissu|tejid|composition|shell|lining|pocket)`)

var headingTagRe = regexp.MustCompile(`(?i)^h[1-6]$`)

// labelScanLimit bounds the fallback scan over label-like tags.
const labelScanLimit = 1000

// Materials collects every piece of material evidence the page offers:
// the HTML fabric section and its bullets, the JSON-LD material field,
// and fabric-looking additionalProperty pairs.
func (p *Page) Materials() crawler.MaterialsPayload {
	payload := crawler.MaterialsPayload{}
	payload.FabricDetailsText, payload.Bullets = p.fabricSection()
	payload.JSONLDMaterial = p.jsonldMaterials()
	payload.ExtraProperties = p.extraProperties()
	return payload
}

// fabricSection locates the materials heading and gathers sibling content
// until the next heading or section boundary. List items become bullets,
// deduplicated in order.
func (p *Page) fabricSection() (string, []string) {
	found := p.findFabricHeading()
	if found == nil {
		return "", nil
	}

	var sectionText []string
	var bullets []string
	for sib := found.Next(); sib.Length() > 0; sib = sib.Next() {
		name := goquery.NodeName(sib)
		if headingTagRe.MatchString(name) || name == "section" || name == "hr" {
			break
		}
		if name == "ul" || name == "ol" {
			sib.Find("li").Each(func(_ int, li *goquery.Selection) {
				if t := nodeText(li); t != "" {
					bullets = append(bullets, t)
				}
			})
			continue
		}
		if t := nodeText(sib); t != "" {
			sectionText = append(sectionText, t)
		}
	}

	return normText(strings.Join(sectionText, " ")), lo.Uniq(bullets)
}

// findFabricHeading tries real headings first (exact or loose match),
// then falls back to label-like tags matched exactly.
func (p *Page) findFabricHeading() *goquery.Selection {
	var found *goquery.Selection
	p.doc.Find("h1,h2,h3,h4,h5,h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		txt := nodeText(s)
		if fabricHeadRe.MatchString(txt) || fabricLooseRe.MatchString(txt) {
			found = s
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	p.doc.Find("strong,span,div").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= labelScanLimit {
			return false
		}
		if fabricHeadRe.MatchString(nodeText(s)) {
			found = s
			return false
		}
		return true
	})
	return found
}

func (p *Page) jsonldMaterials() []string {
	var out []string
	for _, obj := range p.products {
		switch mat := obj["material"].(type) {
		case string:
			if n := normText(mat); n != "" {
				out = append(out, n)
			}
		case []any:
			for _, item := range mat {
				if n := normText(asString(item)); n != "" {
					out = append(out, n)
				}
			}
		}
	}
	return lo.Uniq(out)
}

// extraProperties keeps additionalProperty pairs whose name looks
// fabric-related or that carry any value at all.
func (p *Page) extraProperties() map[string]string {
	props := make(map[string]string)
	for _, obj := range p.products {
		addp := obj["additionalProperty"]
		if addp == nil {
			addp = obj["additionalProperties"]
		}
		if addp == nil {
			continue
		}
		items, ok := addp.([]any)
		if !ok {
			items = []any{addp}
		}
		for _, item := range items {
			pv, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := normText(asString(pv["name"]))
			val := normText(asString(pv["value"]))
			if name == "" {
				continue
			}
			if fabricPropNameRe.MatchString(name) || val != "" {
				props[name] = val
			}
		}
	}
	if len(props) == 0 {
		return nil
	}
	return props
}
