package model

import "time"

// QuantityResult is one estimated material quantity. The quantity already
// includes the waste-factor inflation and is rounded up to whole units.
type QuantityResult struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
}

// QuoteSource marks where a unit price came from.
type QuoteSource string

const (
	QuoteSourceCache    QuoteSource = "cache"
	QuoteSourceLive     QuoteSource = "live"
	QuoteSourceFallback QuoteSource = "fallback"
)

// PriceQuote is an immutable unit-price lookup result. A fresher quote
// supersedes it after the cache TTL expires.
type PriceQuote struct {
	MaterialID string      `json:"material_id"`
	UnitPrice  float64     `json:"unit_price"`
	Source     QuoteSource `json:"source"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// LineItem is one priced row of the cost breakdown.
type LineItem struct {
	MaterialID  string      `json:"material_id"`
	Name        string      `json:"name"`
	Quantity    float64     `json:"quantity"`
	Unit        string      `json:"unit"`
	UnitPrice   float64     `json:"unit_price"`
	LineTotal   float64     `json:"line_total"`
	PriceSource QuoteSource `json:"price_source,omitempty"`
}

// CostBreakdown is the final priced result. Invariants: subtotal equals the
// sum of line totals, tax = subtotal * tax rate, total = subtotal + tax.
type CostBreakdown struct {
	LineItems []LineItem `json:"line_items"`
	Subtotal  float64    `json:"subtotal"`
	TaxRate   float64    `json:"tax_rate"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
}

// AnalysisMetadata annotates a result with provenance and degradation notes.
type AnalysisMetadata struct {
	AnalysisDate time.Time `json:"analysis_date"`
	Confidence   float64   `json:"confidence"`
	Notes        []string  `json:"notes,omitempty"`
	PageCount    int       `json:"page_count,omitempty"`
}

// AnalysisResult is the full pipeline output for one run.
type AnalysisResult struct {
	Geometry  ProjectGeometry  `json:"geometry"`
	Breakdown CostBreakdown    `json:"breakdown"`
	Metadata  AnalysisMetadata `json:"metadata"`
}

// AnalysisRequest describes one requested pipeline run. Exactly one of
// DocumentHandle or RawText is set: handles point at an uploaded blueprint
// in the document store, raw text skips OCR.
type AnalysisRequest struct {
	DocumentHandle string   `json:"document_handle,omitempty"`
	RawText        string   `json:"raw_text,omitempty"`
	MaterialIDs    []string `json:"material_ids"`
	TaxRate        float64  `json:"tax_rate,omitempty"`
}
