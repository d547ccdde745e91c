// Package ocr extracts text content from blueprint documents.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/takeoff-cli/internal/config"
)

// Document is the extraction result: the full text plus the page count,
// which feeds the analysis metadata.
type Document struct {
	Text  string
	Pages int
}

// Extractor extracts text from a blueprint file on local disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdftotext", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "plain":
		return Plain{}, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
