package assetfs

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

func newMemFS(t *testing.T, files map[string]string) (*FS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(mem, "/assets/"+path, []byte(body), 0o644))
	}
	return NewWithFs(mem, "/assets"), mem
}

func TestListFiles_AudioOnlySorted(t *testing.T) {
	t.Parallel()

	fsys, mem := newMemFS(t, map[string]string{
		"famille/Mama.m4a":      "a",
		"famille/baba k.MP3":    "b",
		"famille/notes.txt":     "c",
		"famille/.hidden.m4a":   "d",
		"corps/Mhono.m4a":       "e",
		"famille/Baba s.wav":    "f",
		"famille/sub/inner.m4a": "g",
	})
	require.NoError(t, mem.MkdirAll("/assets/famille/dir.m4a", 0o755))

	got, err := fsys.ListFiles(context.Background(), "famille")
	require.NoError(t, err)
	assert.Equal(t, []string{"Baba s.wav", "Mama.m4a", "baba k.MP3"}, got)
}

func TestListFiles_MissingCategoryIsEmpty(t *testing.T) {
	t.Parallel()

	fsys, _ := newMemFS(t, map[string]string{"corps/Mhono.m4a": "x"})

	got, err := fsys.ListFiles(context.Background(), "nature")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListFiles_RejectsTraversal(t *testing.T) {
	t.Parallel()

	fsys, _ := newMemFS(t, nil)

	for _, category := range []string{"..", "a/b", "", "."} {
		_, err := fsys.ListFiles(context.Background(), category)
		assert.ErrorIs(t, err, domain.ErrValidation, "category %q", category)
	}
}

func TestListFiles_CanceledContext(t *testing.T) {
	t.Parallel()

	fsys, _ := newMemFS(t, map[string]string{"corps/Mhono.m4a": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fsys.ListFiles(ctx, "corps")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	fsys, _ := newMemFS(t, map[string]string{"corps/Mhono.m4a": "audio-bytes"})

	data, err := fsys.ReadFile(context.Background(), "corps", "Mhono.m4a")
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	_, err = fsys.ReadFile(context.Background(), "corps", "Missing.m4a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = fsys.ReadFile(context.Background(), "corps", "../famille/Mama.m4a")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReadHead(t *testing.T) {
	t.Parallel()

	fsys, _ := newMemFS(t, map[string]string{"corps/Mhono.m4a": "audio-bytes"})
	ctx := context.Background()

	head, err := fsys.ReadHead(ctx, "corps", "Mhono.m4a", 5)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(head))

	head, err = fsys.ReadHead(ctx, "corps", "Mhono.m4a", 1<<10)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(head))

	_, err = fsys.ReadHead(ctx, "corps", "Missing.m4a", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	fsys, mem := newMemFS(t, map[string]string{
		"famille/Mama.m4a":     "mama",
		"salutations/Bo.m4a":   "bo",
		"corps/Existing.m4a":   "keep",
		"famille/Existing.m4a": "other",
	})
	ctx := context.Background()

	require.NoError(t, fsys.CopyFile(ctx, "famille", "Mama.m4a", "nature"))
	data, err := afero.ReadFile(mem, "/assets/nature/Mama.m4a")
	require.NoError(t, err)
	assert.Equal(t, "mama", string(data))

	err = fsys.CopyFile(ctx, "famille", "Existing.m4a", "corps")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	data, err = afero.ReadFile(mem, "/assets/corps/Existing.m4a")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data), "destination must not be overwritten")

	err = fsys.CopyFile(ctx, "famille", "Ghost.m4a", "corps")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	exists, err := afero.Exists(mem, "/assets/corps/Ghost.m4a")
	require.NoError(t, err)
	assert.False(t, exists)
}
