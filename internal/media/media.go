// Package media abstracts the external host that stores attachment
// binaries. Quotes only keep {url, externalId} references; the bytes
// live on GCS in production or under a local directory in development.
package media

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured is returned by the nil host used when no backend is
// configured and an upload is attempted anyway.
var ErrNotConfigured = errors.New("media: no storage backend configured")

// Image is what a successful upload hands back: a serving URL plus the
// host-side identifier needed to delete the binary later.
type Image struct {
	URL        string `json:"url"`
	ExternalID string `json:"externalId"`
}

// Host is the media-hosting collaborator. Upload stores the binary and
// returns its reference; Delete removes the binary by external id.
// Both report failures as errors, never silently.
type Host interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (Image, error)
	Delete(ctx context.Context, externalID string) error
}
