package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/config"
)

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		provider string
		want     any
		wantErr  bool
	}{
		{provider: "", want: &PdfToText{}},
		{provider: "pdftotext", want: &PdfToText{}},
		{provider: "plain", want: Plain{}},
		{provider: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("provider "+tt.provider, func(t *testing.T) {
			ex, err := NewExtractor(config.OCRConfig{Provider: tt.provider})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, ex)
		})
	}
}

func TestPlainExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueprint.txt")
	require.NoError(t, os.WriteFile(path, []byte("MAIN FLOOR AREA: 1400 SQFT"), 0o644))

	doc, err := Plain{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "MAIN FLOOR AREA: 1400 SQFT", doc.Text)
	assert.Equal(t, 1, doc.Pages)
}

func TestPlainExtractMissingFile(t *testing.T) {
	_, err := Plain{}.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestPdfToTextFallsBackForTextFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueprint.txt")
	require.NoError(t, os.WriteFile(path, []byte("TOTAL AREA: 900 SQFT"), 0o644))

	doc, err := NewPdfToText("").Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL AREA: 900 SQFT", doc.Text)
}

func TestCountPages(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single page no feed", "page one", 1},
		{"single page trailing feed", "page one\f", 1},
		{"two pages", "page one\fpage two\f", 2},
		{"two pages no trailing feed", "page one\fpage two", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countPages(tt.text))
		})
	}
}
