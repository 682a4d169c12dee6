// Package materials turns raw fabric text into normalized material
// mentions: canonical name, optional percentage, provenance, and the raw
// span each tuple was derived from.
package materials

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	qualifierRe  = regexp.MustCompile(`\b(recycled|riciclato|riciclata|post[- ]consumer|pre[- ]consumer|organic|biologico|responsible|certified|pfl|rds)\b`)
	noiseRe      = regexp.MustCompile(`[^a-z0-9 \-/\.]`)

	// "80% Nylon" and "Nylon 80%" respectively.
	pctBeforeRe = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%\s*([A-Za-z][A-Za-z \-/\.]+)`)
	pctAfterRe  = regexp.MustCompile(`([A-Za-z][A-Za-z \-/\.]+?)\s*(\d{1,3}(?:\.\d+)?)\s*%`)

	blendSplitRe = regexp.MustCompile(`[,/;]|(?:\s+\+\s+)`)
	barePhraseRe = regexp.MustCompile(`[A-Za-z][A-Za-z \-/\.]{2,}`)
)

// Engine normalizes free-text material compositions against a synonym
// table.
type Engine struct {
	table *SynonymTable
}

// NewEngine builds an Engine around the given table.
func NewEngine(table *SynonymTable) *Engine {
	return &Engine{table: table}
}

func normText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Normalize cleans a raw material phrase and resolves it to a canonical
// name: lower-case, strip qualifier words and non-alphanumeric noise,
// then consult the synonym table. When nothing matches, the first
// slash/hyphen-delimited token of the cleaned phrase stands in.
func (e *Engine) Normalize(raw string) string {
	n := strings.ToLower(normText(raw))
	if n == "" {
		return ""
	}
	n = qualifierRe.ReplaceAllString(n, "")
	n = noiseRe.ReplaceAllString(n, " ")
	n = normText(n)
	if n == "" {
		return ""
	}
	if canon, ok := e.table.Canonical(n); ok {
		return canon
	}
	n = strings.TrimSpace(strings.SplitN(n, "/", 2)[0])
	n = strings.TrimSpace(strings.SplitN(n, "-", 2)[0])
	return n
}

// Composition is one parsed (material, percentage) pair plus the raw
// segment it came from. Percentage is nil for unquantified mentions.
type Composition struct {
	Material   string
	Percentage *float64
	Raw        string
}

// Compositions parses every composition pair out of one candidate
// string. Blend segments are split on commas, semicolons, slashes, and
// " + "; both percentage orders are recognized. When no percentage
// pattern matches anywhere in the string, bare alphabetic phrases of at
// least three characters become unquantified mentions.
func (e *Engine) Compositions(text string) []Composition {
	text = normText(text)
	if text == "" {
		return nil
	}

	var out []Composition
	for _, part := range splitBlend(text) {
		for _, m := range pctBeforeRe.FindAllStringSubmatch(part, -1) {
			out = e.appendComposition(out, m[2], m[1], part)
		}
		for _, m := range pctAfterRe.FindAllStringSubmatch(part, -1) {
			out = e.appendComposition(out, m[1], m[2], part)
		}
	}

	if len(out) == 0 {
		for _, c := range barePhraseRe.FindAllString(text, -1) {
			mat := e.Normalize(c)
			if len(mat) >= 3 {
				out = append(out, Composition{Material: mat, Raw: text})
			}
		}
	}
	return dedupCompositions(out)
}

func (e *Engine) appendComposition(out []Composition, rawMat, rawPct, part string) []Composition {
	mat := e.Normalize(rawMat)
	if mat == "" {
		return out
	}
	pct, err := strconv.ParseFloat(rawPct, 64)
	if err != nil {
		return out
	}
	return append(out, Composition{Material: mat, Percentage: &pct, Raw: part})
}

func splitBlend(text string) []string {
	var parts []string
	for _, p := range blendSplitRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

type compKey struct {
	material string
	pct      float64
	hasPct   bool
	raw      string
}

func dedupCompositions(in []Composition) []Composition {
	var out []Composition
	seen := make(map[compKey]struct{}, len(in))
	for _, c := range in {
		key := compKey{material: c.Material, raw: c.Raw}
		if c.Percentage != nil {
			key.pct, key.hasPct = *c.Percentage, true
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Mentions flattens a page's material evidence into candidate strings,
// parses each, and tags every resulting tuple with its provenance:
// jsonld for the structured material list, html for the fabric section
// and bullets, extra for auxiliary property pairs.
func (e *Engine) Mentions(payload crawler.MaterialsPayload) []crawler.Mention {
	jsonldTexts := make(map[string]struct{}, len(payload.JSONLDMaterial))
	for _, t := range payload.JSONLDMaterial {
		jsonldTexts[t] = struct{}{}
	}
	htmlTexts := make(map[string]struct{}, len(payload.Bullets)+1)
	if payload.FabricDetailsText != "" {
		htmlTexts[payload.FabricDetailsText] = struct{}{}
	}
	for _, b := range payload.Bullets {
		htmlTexts[b] = struct{}{}
	}

	var mentions []crawler.Mention
	seen := make(map[string]struct{})
	for _, t := range candidateTexts(payload) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}

		source := crawler.SourceExtra
		if _, ok := jsonldTexts[t]; ok {
			source = crawler.SourceJSONLD
		} else if _, ok := htmlTexts[t]; ok {
			source = crawler.SourceHTML
		}
		for _, c := range e.Compositions(t) {
			mentions = append(mentions, crawler.Mention{
				Material:   c.Material,
				Percentage: c.Percentage,
				Source:     source,
				Raw:        c.Raw,
			})
		}
	}
	return mentions
}

// candidateTexts gathers every non-empty string across the payload.
// Extra-property keys are sorted so iteration stays deterministic.
func candidateTexts(payload crawler.MaterialsPayload) []string {
	var out []string
	if payload.FabricDetailsText != "" {
		out = append(out, payload.FabricDetailsText)
	}
	out = append(out, payload.Bullets...)
	out = append(out, payload.JSONLDMaterial...)

	keys := make([]string, 0, len(payload.ExtraProperties))
	for k := range payload.ExtraProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k)
		if v := payload.ExtraProperties[k]; v != "" {
			out = append(out, v)
		}
	}

	var filtered []string
	for _, t := range out {
		if strings.TrimSpace(t) != "" {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
