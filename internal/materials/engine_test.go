package materials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := DefaultSynonyms()
	require.NoError(t, err)
	return NewEngine(table)
}

func TestCompositionsPercentBeforeMaterial(t *testing.T) {
	e := newTestEngine(t)
	comps := e.Compositions("80% Nylon, 20% Elastane")
	require.Len(t, comps, 2)
	assert.Equal(t, "nylon", comps[0].Material)
	require.NotNil(t, comps[0].Percentage)
	assert.InDelta(t, 80.0, *comps[0].Percentage, 0.001)
	assert.Equal(t, "80% Nylon", comps[0].Raw)
	assert.Equal(t, "elastane", comps[1].Material)
	require.NotNil(t, comps[1].Percentage)
	assert.InDelta(t, 20.0, *comps[1].Percentage, 0.001)
}

func TestCompositionsMaterialBeforePercent(t *testing.T) {
	e := newTestEngine(t)
	comps := e.Compositions("Recycled Polyester 100%")
	require.Len(t, comps, 1)
	assert.Equal(t, "polyester", comps[0].Material, "qualifier should be stripped before synonym lookup")
	require.NotNil(t, comps[0].Percentage)
	assert.InDelta(t, 100.0, *comps[0].Percentage, 0.001)
}

func TestCompositionsSlashBlend(t *testing.T) {
	e := newTestEngine(t)
	comps := e.Compositions("60% cotone / 40% poliestere")
	require.Len(t, comps, 2)
	assert.Equal(t, "cotton", comps[0].Material)
	assert.Equal(t, "polyester", comps[1].Material)
}

func TestCompositionsUnquantifiedFallback(t *testing.T) {
	e := newTestEngine(t)
	comps := e.Compositions("Gore-Tex waterproof membrane")
	require.Len(t, comps, 1)
	assert.Equal(t, "gore-tex", comps[0].Material)
	assert.Nil(t, comps[0].Percentage)
	assert.Equal(t, "Gore-Tex waterproof membrane", comps[0].Raw)
}

func TestCompositionsOverHundredPercentPreserved(t *testing.T) {
	// Garbled retailer text is stored as parsed; no reconciliation.
	e := newTestEngine(t)
	comps := e.Compositions("90% Wool, 90% Nylon")
	require.Len(t, comps, 2)
	assert.InDelta(t, 90.0, *comps[0].Percentage, 0.001)
	assert.InDelta(t, 90.0, *comps[1].Percentage, 0.001)
}

func TestCompositionsEmptyText(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, e.Compositions(""))
	assert.Empty(t, e.Compositions("   "))
}

func TestNormalizeSynonyms(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		raw  string
		want string
	}{
		{"Poliammide", "nylon"},
		{"Nylon", "nylon"},
		{"Spandex", "elastane"},
		{"LYCRA", "elastane"},
		{"Organic Cotton", "cotton"},
		{"merino wool", "wool"},
		{"Gore Tex", "gore-tex"},
		{"Recycled Polyester", "polyester"},
		{"riciclata lana", "wool"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Normalize(tc.raw))
		})
	}
}

func TestNormalizeFallbackFirstToken(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, "cordura", e.Normalize("Cordura/Kevlar blend"))
	assert.Equal(t, "", e.Normalize("  "))
	assert.Equal(t, "", e.Normalize("!!!"))
}

func TestFirstTableEntryWins(t *testing.T) {
	e := newTestEngine(t)
	// "pa" is a nylon synonym; a phrase containing both polyester and pa
	// resolves to polyester because that entry comes first in the table.
	assert.Equal(t, "polyester", e.Normalize("polyester pa"))
}

func TestMentionsProvenance(t *testing.T) {
	e := newTestEngine(t)
	payload := crawler.MaterialsPayload{
		FabricDetailsText: "Body: 80% Nylon, 20% Elastane",
		Bullets:           []string{"Lining: 100% Polyester"},
		JSONLDMaterial:    []string{"Recycled Polyester 100%"},
		ExtraProperties:   map[string]string{"Shell fabric": "Cotton 95%, Elastane 5%"},
	}

	mentions := e.Mentions(payload)
	bySource := map[string]int{}
	for _, m := range mentions {
		bySource[m.Source]++
	}
	assert.Equal(t, 3, bySource[crawler.SourceHTML], "fabric text and bullets are html provenance")
	assert.Equal(t, 1, bySource[crawler.SourceJSONLD])
	assert.Positive(t, bySource[crawler.SourceExtra])
	for _, m := range mentions {
		assert.NotEmpty(t, m.Raw)
	}
}

func TestMentionsEmptyPayload(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, e.Mentions(crawler.MaterialsPayload{}))
}

func TestLoadSynonymsFileFallsBackToEmbedded(t *testing.T) {
	table, err := LoadSynonymsFile("")
	require.NoError(t, err)
	name, ok := table.Canonical("poliestere")
	require.True(t, ok)
	assert.Equal(t, "polyester", name)
}
