// Package docstore persists uploaded blueprint documents. Backends share
// one contract: Store validates and saves an upload, Stage produces a local
// path for text extraction, and PurgeOlderThan implements the retention
// window for processed uploads.
package docstore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/takeoff-cli/internal/config"
)

// ErrInvalidDocument marks uploads rejected by validation. Handlers map it
// to a client error rather than a server failure.
var ErrInvalidDocument = eris.New("docstore: invalid document")

// Stored describes a persisted upload. Handle is backend-specific and
// opaque to callers.
type Stored struct {
	Handle       string    `json:"handle"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	StoredAt     time.Time `json:"stored_at"`
}

// Storage is the document persistence contract.
type Storage interface {
	// Store validates and saves an upload, returning its handle.
	Store(ctx context.Context, name string, r io.Reader, size int64) (Stored, error)
	// Stage makes the document available on local disk and returns the
	// path. For local backends this is the stored file itself.
	Stage(ctx context.Context, handle string) (string, error)
	// Delete removes a stored document.
	Delete(ctx context.Context, handle string) error
	// PurgeOlderThan removes documents stored before the cutoff and
	// reports how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// New creates a Storage backend from config.
func New(cfg config.DocsConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocal(cfg.LocalDir, cfg.MaxSizeBytes)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, eris.Errorf("docstore: unknown provider %q", cfg.Provider)
	}
}

var allowedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
}

// validate enforces the upload contract shared by all backends.
func validate(name string, size, maxSize int64) error {
	if strings.TrimSpace(name) == "" {
		return eris.Wrap(ErrInvalidDocument, "missing file name")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return eris.Wrapf(ErrInvalidDocument, "unsupported file type %q", ext)
	}
	if size <= 0 {
		return eris.Wrap(ErrInvalidDocument, "empty upload")
	}
	if maxSize > 0 && size > maxSize {
		return eris.Wrapf(ErrInvalidDocument, "document is %d bytes, limit is %d", size, maxSize)
	}
	return nil
}
