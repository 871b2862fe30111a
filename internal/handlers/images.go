package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/danielrocha92/zero20garage-api-orcamentos/httpx"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/media"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/quotes"
)

const maxUploadBytes = 32 << 20

// ImageHandler accepts multipart uploads, pushes the binaries to the
// media host, and records the returned references on the quote.
type ImageHandler struct {
	Svc  *quotes.Service
	Host media.Host
}

func NewImageHandler(svc *quotes.Service, host media.Host) *ImageHandler {
	return &ImageHandler{Svc: svc, Host: host}
}

// Attach: POST /quotes/{id}/images — multipart field "images" (one or
// more files; the legacy single-file field "image" is accepted too).
func (h *ImageHandler) Attach(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", "could not parse multipart form", nil)
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		files = r.MultipartForm.File["image"]
	}
	if len(files) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "no_images", "attach at least one file in the images field", nil)
		return
	}

	// The quote must exist before any binary leaves for the host;
	// otherwise a 404 would strand uploaded objects.
	if _, err := h.Svc.Get(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	refs := make([]models.ImageRef, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", "could not read uploaded file", nil)
			return
		}
		img, err := h.Host.Upload(r.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			h.discardUploads(r.Context(), refs)
			writeServiceError(w, &quotes.ExternalServiceError{Op: "upload", Err: err})
			return
		}
		refs = append(refs, models.ImageRef{URL: img.URL, ExternalID: img.ExternalID})
	}

	q, err := h.Svc.AttachImages(r.Context(), id, refs)
	if err != nil {
		h.discardUploads(r.Context(), refs)
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// discardUploads best-effort deletes binaries that made it to the host
// before the attach as a whole failed, so they are not stranded with
// no metadata pointing at them.
func (h *ImageHandler) discardUploads(ctx context.Context, refs []models.ImageRef) {
	for _, ref := range refs {
		if err := h.Host.Delete(ctx, ref.ExternalID); err != nil {
			logrus.WithError(err).WithField("externalId", ref.ExternalID).
				Warn("orphaned media object after failed attach")
		}
	}
}

// Detach: DELETE /quotes/{id}/images/{externalId...} — the wildcard
// keeps slashes in host object names (e.g. quotes/<uuid>.jpg) intact.
func (h *ImageHandler) Detach(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	externalID := r.PathValue("externalId")
	if externalID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", "externalId is required", nil)
		return
	}
	q, err := h.Svc.DetachImage(r.Context(), id, externalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}
