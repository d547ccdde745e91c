package docstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Local stores documents in a flat directory. Handles are generated file
// names, so original names never touch the filesystem.
type Local struct {
	dir     string
	maxSize int64
}

// NewLocal creates the storage directory if needed.
func NewLocal(dir string, maxSize int64) (*Local, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "takeoff-uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "docstore: create upload dir %s", dir)
	}
	return &Local{dir: dir, maxSize: maxSize}, nil
}

func (l *Local) Store(_ context.Context, name string, r io.Reader, size int64) (Stored, error) {
	if err := validate(name, size, l.maxSize); err != nil {
		return Stored{}, err
	}

	handle := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(l.dir, handle)

	f, err := os.Create(path)
	if err != nil {
		return Stored{}, eris.Wrapf(err, "docstore: create %s", path)
	}
	written, err := io.Copy(f, io.LimitReader(r, size))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, eris.Wrapf(err, "docstore: write %s", path)
	}
	if written != size {
		_ = os.Remove(path)
		return Stored{}, eris.Wrapf(ErrInvalidDocument, "upload truncated at %d of %d bytes", written, size)
	}

	return Stored{
		Handle:       handle,
		OriginalName: name,
		Size:         written,
		StoredAt:     time.Now().UTC(),
	}, nil
}

func (l *Local) Stage(_ context.Context, handle string) (string, error) {
	path, err := l.resolve(handle)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrapf(err, "docstore: stage %s", handle)
	}
	return path, nil
}

func (l *Local) Delete(_ context.Context, handle string) error {
	path, err := l.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "docstore: delete %s", handle)
	}
	return nil
}

func (l *Local) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, eris.Wrapf(err, "docstore: read upload dir %s", l.dir)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, e.Name())); err != nil {
			zap.L().Warn("purge failed for upload", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// resolve rejects handles that escape the storage directory.
func (l *Local) resolve(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) {
		return "", eris.Wrapf(ErrInvalidDocument, "bad handle %q", handle)
	}
	return filepath.Join(l.dir, handle), nil
}
