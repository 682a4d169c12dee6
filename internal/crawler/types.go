// Package crawler defines core types shared across the harvest pipeline.
package crawler

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaterialsPayload is the raw material evidence collected for a product
// before normalization. It is persisted verbatim on the product row so
// downstream consumers can re-run their own extraction.
type MaterialsPayload struct {
	FabricDetailsText string            `json:"fabric_details_text,omitempty"`
	Bullets           []string          `json:"bullets,omitempty"`
	JSONLDMaterial    []string          `json:"jsonld_material,omitempty"`
	ExtraProperties   map[string]string `json:"extra_properties,omitempty"`
}

// Empty reports whether no material evidence was collected at all.
func (m MaterialsPayload) Empty() bool {
	return m.FabricDetailsText == "" &&
		len(m.Bullets) == 0 &&
		len(m.JSONLDMaterial) == 0 &&
		len(m.ExtraProperties) == 0
}

// Product is the canonical record extracted from a product page.
// Identity is the page URL; repeated visits update the row in place.
type Product struct {
	SourceDomain string
	URL          string
	SKU          string
	Name         string
	Brand        string
	Description  string
	Category     string
	Images       []string
	Materials    MaterialsPayload
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Variant is a purchasable variation of a product. Variant rows are
// append-only per visit; re-crawling a product appends them again.
type Variant struct {
	SKU          string
	Color        string
	Size         string
	UPC          string
	EAN          string
	GTIN         string
	Price        *float64
	Currency     string
	Availability string
	Raw          json.RawMessage
}

// Review is a customer review attached to a product. Duplicate reviews
// across crawls are detected by a content fingerprint.
type Review struct {
	Rating      *float64
	Title       string
	Body        string
	Author      string
	Lang        string
	PublishedAt string
	Source      string
	Raw         json.RawMessage
}

// Material mention provenance values.
const (
	SourceJSONLD = "jsonld"
	SourceHTML   = "html"
	SourceExtra  = "extra"
)

// Mention is a single normalized material observation: canonical name,
// optional percentage, provenance, and the raw text span it came from.
type Mention struct {
	Material   string
	Percentage *float64
	Source     string
	Raw        string
}

// FetchError wraps a failed page retrieval. The pipeline treats it as
// skip-and-continue; it never aborts a run.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
