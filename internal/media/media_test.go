package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCheck(t *testing.T) {
	policy := Policy{MaxFiles: 2, MaxFileBytes: 10}

	assert.ErrorIs(t, policy.Check(nil), ErrNoFiles)
	assert.ErrorIs(t, policy.Check(make([]Upload, 3)), ErrTooManyFiles)
	assert.ErrorIs(t, policy.Check([]Upload{{Filename: "notes.txt", ContentType: "text/plain", Size: 1}}), ErrUnsupportedType)
	assert.ErrorIs(t, policy.Check([]Upload{{Filename: "cat.png", ContentType: "image/png", Size: 11}}), ErrTooLarge)
	assert.NoError(t, policy.Check([]Upload{
		{Filename: "cat.png", ContentType: "image/png", Size: 10},
		{Filename: "clip.mov", ContentType: "application/octet-stream", Size: 5},
	}))
}

func TestExtensionFallsBackToContentType(t *testing.T) {
	assert.Equal(t, ".png", Extension("image/png", "Cat.PNG"))
	assert.Equal(t, ".jpg", Extension("image/heic", "blob"))
	assert.Equal(t, ".mp4", Extension("video/quicktime", ""))
	assert.Equal(t, "", Extension("application/pdf", ""))
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:5000/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "reports/abc.jpg", "image/jpeg", strings.NewReader("meow"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/uploads/reports/abc.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "meow", string(data))
}

func TestLocalStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:5000/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "reports/gone.jpg", "image/jpeg", strings.NewReader("meow"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "reports/gone.jpg"))
	_, err = os.Stat(filepath.Join(dir, "reports", "gone.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "reports/never.jpg"))
}
