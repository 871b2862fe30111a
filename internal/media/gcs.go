package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSHost stores binaries in a Google Cloud Storage bucket. Objects are
// named quotes/<uuid><ext>; the object name doubles as the external id.
type GCSHost struct {
	bucket  *storage.BucketHandle
	name    string
	baseURL string
}

// NewGCSHost opens a client against the given bucket. baseURL overrides
// the public URL prefix (defaults to storage.googleapis.com).
func NewGCSHost(ctx context.Context, bucket, baseURL string) (*GCSHost, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSHost{
		bucket:  client.Bucket(bucket),
		name:    bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (h *GCSHost) Upload(ctx context.Context, filename, contentType string, r io.Reader) (Image, error) {
	object := "quotes/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	w := h.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return Image{}, fmt.Errorf("gcs write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return Image{}, fmt.Errorf("gcs close %s: %w", object, err)
	}
	return Image{URL: h.baseURL + "/" + object, ExternalID: object}, nil
}

func (h *GCSHost) Delete(ctx context.Context, externalID string) error {
	if err := h.bucket.Object(externalID).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete %s: %w", externalID, err)
	}
	return nil
}
