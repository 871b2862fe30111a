package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalHost is the development fallback: binaries land in a directory
// on disk and are served as /uploads/<name>. The file name is the
// external id.
type LocalHost struct {
	Dir string
}

func NewLocalHost(dir string) *LocalHost {
	if dir == "" {
		dir = "./uploads"
	}
	return &LocalHost{Dir: dir}
}

func (h *LocalHost) Upload(_ context.Context, filename, _ string, r io.Reader) (Image, error) {
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return Image{}, fmt.Errorf("local upload dir: %w", err)
	}
	name := uuid.NewString() + strings.ToLower(path.Ext(filename))
	dst, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		return Image{}, fmt.Errorf("local create: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return Image{}, fmt.Errorf("local write: %w", err)
	}
	return Image{URL: "/uploads/" + name, ExternalID: name}, nil
}

func (h *LocalHost) Delete(_ context.Context, externalID string) error {
	// Refuse anything that could walk out of the upload dir.
	if externalID == "" || externalID != filepath.Base(externalID) {
		return fmt.Errorf("local delete: invalid id %q", externalID)
	}
	if err := os.Remove(filepath.Join(h.Dir, externalID)); err != nil {
		return fmt.Errorf("local delete %s: %w", externalID, err)
	}
	return nil
}

// Disabled is used when no backend is configured; every call fails
// with ErrNotConfigured so handlers surface a clear error instead of
// half-attaching metadata.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (Image, error) {
	return Image{}, ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error { return ErrNotConfigured }
