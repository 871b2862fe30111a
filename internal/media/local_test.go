package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalHostUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	h := NewLocalHost(dir)
	ctx := context.Background()

	img, err := h.Upload(ctx, "frente.JPG", "image/jpeg", strings.NewReader("bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(img.URL, "/uploads/"))
	require.True(t, strings.HasSuffix(img.ExternalID, ".jpg"), "extension should be lowercased: %s", img.ExternalID)

	data, err := os.ReadFile(filepath.Join(dir, img.ExternalID))
	require.NoError(t, err)
	require.Equal(t, "bytes", string(data))

	require.NoError(t, h.Delete(ctx, img.ExternalID))
	_, err = os.Stat(filepath.Join(dir, img.ExternalID))
	require.True(t, os.IsNotExist(err))
}

func TestLocalHostDeleteRejectsPathEscapes(t *testing.T) {
	h := NewLocalHost(t.TempDir())
	require.Error(t, h.Delete(context.Background(), "../etc/passwd"))
	require.Error(t, h.Delete(context.Background(), ""))
}

func TestLocalHostDeleteMissingObjectFails(t *testing.T) {
	h := NewLocalHost(t.TempDir())
	require.Error(t, h.Delete(context.Background(), "nope.jpg"))
}

func TestDisabledHostAlwaysFails(t *testing.T) {
	var h Host = Disabled{}
	_, err := h.Upload(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, h.Delete(context.Background(), "a"), ErrNotConfigured)
}
