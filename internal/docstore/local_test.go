package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/config"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), 1<<20)
	require.NoError(t, err)
	return l
}

func TestLocalStoreAndStage(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()
	content := "MAIN FLOOR AREA: 1400 SQFT"

	stored, err := l.Store(ctx, "plan.txt", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "plan.txt", stored.OriginalName)
	assert.Equal(t, int64(len(content)), stored.Size)
	assert.True(t, strings.HasSuffix(stored.Handle, ".txt"))
	assert.NotContains(t, stored.Handle, "plan") // handle is generated, not the client name

	path, err := l.Stage(ctx, stored.Handle)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalStoreValidation(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	tests := []struct {
		name string
		file string
		size int64
	}{
		{"missing name", "", 10},
		{"unsupported type", "plan.exe", 10},
		{"empty upload", "plan.pdf", 0},
		{"oversize", "plan.pdf", 2 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Store(ctx, tt.file, strings.NewReader("x"), tt.size)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidDocument))
		})
	}
}

func TestLocalStoreTruncatedUpload(t *testing.T) {
	l := newLocal(t)

	_, err := l.Store(context.Background(), "plan.txt", strings.NewReader("short"), 100)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidDocument))
}

func TestLocalStageRejectsPathEscape(t *testing.T) {
	l := newLocal(t)

	_, err := l.Stage(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidDocument))
}

func TestLocalDelete(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	stored, err := l.Store(ctx, "plan.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, stored.Handle))

	_, err = l.Stage(ctx, stored.Handle)
	assert.Error(t, err)

	// Deleting twice is not an error.
	assert.NoError(t, l.Delete(ctx, stored.Handle))
}

func TestLocalPurgeOlderThan(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	old, err := l.Store(ctx, "old.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)
	fresh, err := l.Store(ctx, "fresh.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)

	// Age the first file past the cutoff.
	oldPath := filepath.Join(l.dir, old.Handle)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	removed, err := l.PurgeOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = l.Stage(ctx, old.Handle)
	assert.Error(t, err)
	_, err = l.Stage(ctx, fresh.Handle)
	assert.NoError(t, err)
}

func TestNewProviderSelection(t *testing.T) {
	dir := t.TempDir()

	s, err := New(config.DocsConfig{Provider: "local", LocalDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, err = New(config.DocsConfig{Provider: "s3"})
	assert.Error(t, err) // endpoint and bucket are required

	_, err = New(config.DocsConfig{Provider: "floppy"})
	assert.Error(t, err)
}
