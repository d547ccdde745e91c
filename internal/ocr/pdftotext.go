package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool. Non-PDF
// files are read as plain text so text blueprints work without a separate
// provider.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Extract runs pdftotext -layout on the given PDF and returns stdout. The
// page count comes from the form feeds pdftotext emits between pages.
func (p *PdfToText) Extract(ctx context.Context, path string) (Document, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return Plain{}.Extract(ctx, path)
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Document{}, eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", path, stderr.String())
	}

	text := stdout.String()
	return Document{Text: text, Pages: countPages(text)}, nil
}

// Plain reads a document as-is, for text-format blueprints.
type Plain struct{}

// Extract reads the whole file and treats it as a single page.
func (Plain) Extract(_ context.Context, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, eris.Wrapf(err, "ocr: read %s", path)
	}
	return Document{Text: string(data), Pages: 1}, nil
}

// countPages counts pdftotext output pages. Each page ends with a form
// feed, including the last.
func countPages(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\f")
	if n == 0 {
		return 1
	}
	if strings.HasSuffix(text, "\f") {
		return n
	}
	return n + 1
}
