package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "sku": "84215",
  "name": "Down Sweater Jacket",
  "brand": {"@type": "Brand", "name": "Patagonia"},
  "description": "Lightweight and windproof.",
  "category": "Jackets",
  "image": "https://cdn.example.com/84215.jpg",
  "material": ["100% Recycled Polyester", "Nylon ripstop"],
  "additionalProperty": [
    {"@type": "PropertyValue", "name": "Shell fabric", "value": "100% recycled nylon"},
    {"@type": "PropertyValue", "name": "Weight", "value": "428 g"},
    {"@type": "PropertyValue", "name": "Fit", "value": ""}
  ],
  "offers": [
    {"@type": "Offer", "price": "279.00", "priceCurrency": "USD", "availability": "https://schema.org/InStock"}
  ],
  "review": {
    "@type": "Review",
    "name": "Warm and light",
    "reviewBody": "Wore it all winter.",
    "author": {"@type": "Person", "name": "Sam"},
    "datePublished": "2024-01-02",
    "reviewRating": {"@type": "Rating", "ratingValue": "5"}
  }
}
</script>
<script type="application/ld+json">{this is not json</script>
</head>
<body>
<h2>Fabric Details</h2>
<p>Shell: lightweight ripstop.</p>
<ul>
  <li>80% <span>Nylon</span></li>
  <li>20% Elastane</li>
  <li>80% Nylon</li>
</ul>
<h2>Care</h2>
<p>Machine wash cold.</p>
</body></html>`

func TestParseSkipsMalformedBlocks(t *testing.T) {
	p, err := Parse([]byte(productPage))
	require.NoError(t, err)
	require.Len(t, p.products, 1)
}

func TestProductExtraction(t *testing.T) {
	p, err := Parse([]byte(productPage))
	require.NoError(t, err)

	ex, ok := p.Product()
	require.True(t, ok)
	assert.Equal(t, "84215", ex.Product.SKU)
	assert.Equal(t, "Down Sweater Jacket", ex.Product.Name)
	assert.Equal(t, "Patagonia", ex.Product.Brand, "brand object should unwrap to its name")
	assert.Equal(t, "Jackets", ex.Product.Category)
	assert.Equal(t, []string{"https://cdn.example.com/84215.jpg"}, ex.Product.Images, "scalar image becomes one-element list")

	require.Len(t, ex.Variants, 1)
	v := ex.Variants[0]
	require.NotNil(t, v.Price)
	assert.InDelta(t, 279.0, *v.Price, 0.001)
	assert.Equal(t, "USD", v.Currency)
	assert.Equal(t, "https://schema.org/InStock", v.Availability)

	require.Len(t, ex.Reviews, 1)
	r := ex.Reviews[0]
	assert.Equal(t, "Warm and light", r.Title)
	assert.Equal(t, "Sam", r.Author, "author object should unwrap to its name")
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 5.0, *r.Rating, 0.001)
	assert.Equal(t, "schema.org", r.Source)
}

func TestNoProductObject(t *testing.T) {
	p, err := Parse([]byte(`<html><body><h1>Our Story</h1></body></html>`))
	require.NoError(t, err)
	_, ok := p.Product()
	require.False(t, ok)
}

func TestUnparsablePriceIsNil(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type":"Product","sku":"1","offers":{"price":"call us","priceCurrency":"USD"}}
	</script></head></html>`
	p, err := Parse([]byte(page))
	require.NoError(t, err)
	ex, ok := p.Product()
	require.True(t, ok)
	require.Len(t, ex.Variants, 1)
	assert.Nil(t, ex.Variants[0].Price)
}

func TestListFormProductType(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type":["Product"],"name":"List Typed"}
	</script></head></html>`
	p, err := Parse([]byte(page))
	require.NoError(t, err)
	ex, ok := p.Product()
	require.True(t, ok)
	assert.Equal(t, "List Typed", ex.Product.Name)
}

func TestMaterialsPayload(t *testing.T) {
	p, err := Parse([]byte(productPage))
	require.NoError(t, err)

	payload := p.Materials()
	assert.Equal(t, "Shell: lightweight ripstop.", payload.FabricDetailsText)
	assert.Equal(t, []string{"80% Nylon", "20% Elastane"}, payload.Bullets, "bullets dedupe preserving order")
	assert.Equal(t, []string{"100% Recycled Polyester", "Nylon ripstop"}, payload.JSONLDMaterial)
	assert.Equal(t, map[string]string{
		"Shell fabric": "100% recycled nylon",
		"Weight":       "428 g",
	}, payload.ExtraProperties, "empty-valued non-fabric properties are dropped")
}

func TestFabricSectionLabelFallback(t *testing.T) {
	page := `<html><body>
	<div><strong>Materiali</strong><p>60% cotone, 40% poliestere</p></div>
	</body></html>`
	p, err := Parse([]byte(page))
	require.NoError(t, err)
	payload := p.Materials()
	assert.Equal(t, "60% cotone, 40% poliestere", payload.FabricDetailsText)
}

func TestFabricSectionStopsAtNextHeading(t *testing.T) {
	p, err := Parse([]byte(productPage))
	require.NoError(t, err)
	payload := p.Materials()
	assert.NotContains(t, payload.FabricDetailsText, "Machine wash")
}

func TestNoFabricSection(t *testing.T) {
	p, err := Parse([]byte(`<html><body><h2>Shipping</h2><p>Free returns.</p></body></html>`))
	require.NoError(t, err)
	payload := p.Materials()
	assert.Empty(t, payload.FabricDetailsText)
	assert.Empty(t, payload.Bullets)
}
