package extract

import (
	"encoding/json"
	"strconv"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

// ProductExtract bundles everything a single page yields.
type ProductExtract struct {
	Product  crawler.Product
	Variants []crawler.Variant
	Reviews  []crawler.Review
}

// Product maps the first JSON-LD Product object into the entity shape.
// The second return is false when the page carries no Product object;
// most non-product pages land here and it is not an error.
func (p *Page) Product() (ProductExtract, bool) {
	if len(p.products) == 0 {
		return ProductExtract{}, false
	}
	obj := p.products[0]

	out := ProductExtract{
		Product: crawler.Product{
			SKU:         asString(obj["sku"]),
			Name:        asString(obj["name"]),
			Brand:       brandName(obj["brand"]),
			Description: asString(obj["description"]),
			Category:    asString(obj["category"]),
			Images:      imageList(obj["image"]),
		},
	}

	if offer, ok := firstObject(obj["offers"]); ok {
		v := crawler.Variant{
			SKU:          asString(obj["sku"]),
			Price:        asFloat(offer["price"]),
			Currency:     asString(offer["priceCurrency"]),
			Availability: asString(offer["availability"]),
		}
		v.Raw = marshalVariant(v)
		out.Variants = append(out.Variants, v)
	}

	out.Reviews = p.reviews()
	return out, true
}

// reviews collects the review field from every Product object on the
// page, unwrapping the scalar-vs-list forms.
func (p *Page) reviews() []crawler.Review {
	var out []crawler.Review
	for _, obj := range p.products {
		revs, ok := obj["review"]
		if !ok || revs == nil {
			continue
		}
		items, ok := revs.([]any)
		if !ok {
			items = []any{revs}
		}
		for _, item := range items {
			r, ok := item.(map[string]any)
			if !ok {
				continue
			}
			raw, _ := json.Marshal(r)
			out = append(out, crawler.Review{
				Rating:      asFloat(nested(r, "reviewRating", "ratingValue")),
				Title:       asString(r["name"]),
				Body:        asString(r["reviewBody"]),
				Author:      authorName(r["author"]),
				PublishedAt: asString(r["datePublished"]),
				Source:      "schema.org",
				Raw:         raw,
			})
		}
	}
	return out
}

func marshalVariant(v crawler.Variant) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"sku":          v.SKU,
		"price":        v.Price,
		"currency":     v.Currency,
		"availability": v.Availability,
	})
	return raw
}

// firstObject unwraps an offers value that may be an object or a list of
// objects; only the first list element is authoritative.
func firstObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		obj, ok := t[0].(map[string]any)
		return obj, ok
	default:
		return nil, false
	}
}

func brandName(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return asString(obj["name"])
	}
	return asString(v)
}

func authorName(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return asString(obj["name"])
	}
	return asString(v)
}

func imageList(v any) []string {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case nil:
		return nil
	default:
		raw = []any{v}
	}
	var out []string
	for _, item := range raw {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nested(obj map[string]any, keys ...string) any {
	var cur any = obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// asFloat parses a number or numeric string best-effort; nil on failure.
func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
