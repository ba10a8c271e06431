package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)
	return store
}

func TestSaveImage(t *testing.T) {
	store := newStore(t)
	payload := []byte("\x89PNG\r\n\x1a\nfake image data")

	obj, err := store.SaveImage("user-1", "image/png", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Regexp(t, `^user-1/\d+-[0-9a-f-]{8}\.png$`, obj.Key)
	require.Equal(t, "http://localhost:8080/uploads/"+obj.Key, obj.URL)
	require.Equal(t, int64(len(payload)), obj.Size)
	require.Equal(t, "image/png", obj.ContentType)

	written, err := os.ReadFile(filepath.Join(store.Dir(), filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	require.Equal(t, payload, written)
}

func TestSaveImageNormalizesContentType(t *testing.T) {
	store := newStore(t)

	obj, err := store.SaveImage("user-1", "IMAGE/JPEG", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(obj.Key, ".jpg"))
}

func TestSaveImageUnsupportedType(t *testing.T) {
	store := newStore(t)

	_, err := store.SaveImage("user-1", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveImageTooLarge(t *testing.T) {
	store := newStore(t)

	oversized := io.LimitReader(zeroReader{}, MaxImageSize+1)
	_, err := store.SaveImage("user-1", "image/png", oversized)
	require.ErrorIs(t, err, ErrTooLarge)

	// The partial object must not be left behind
	entries, err := os.ReadDir(filepath.Join(store.Dir(), "user-1"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
