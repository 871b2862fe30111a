package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
)

func multipartUpload(t *testing.T, h http.Handler, path string, files ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range files {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAttachAndDetachImages(t *testing.T) {
	h, _, host := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	created := decodeQuote(t, w)

	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", created.ID), "frente.jpg", "motor.jpg")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	got := decodeQuote(t, w)
	imgs := got.Images.Data()
	if len(imgs) != 2 {
		t.Fatalf("expected 2 images got %v", imgs)
	}
	if imgs[0].URL == "" || imgs[0].ExternalID == "" {
		t.Fatalf("image refs missing fields: %v", imgs)
	}
	if host.uploads != 2 {
		t.Fatalf("expected 2 uploads on the host got %d", host.uploads)
	}

	// External ids contain a slash (bucket object names); the detach
	// route must keep them whole.
	w = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/quotes/%d/images/%s", created.ID, imgs[0].ExternalID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	got = decodeQuote(t, w)
	left := got.Images.Data()
	if len(left) != 1 || left[0].ExternalID != imgs[1].ExternalID {
		t.Fatalf("expected only %s left, got %v", imgs[1].ExternalID, left)
	}
	if len(host.deleted) != 1 || host.deleted[0] != imgs[0].ExternalID {
		t.Fatalf("expected remote delete of %s, got %v", imgs[0].ExternalID, host.deleted)
	}
}

func TestAttachRejectsEmptyFormAndMissingQuote(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	created := decodeQuote(t, w)

	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", created.ID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty form got %d", w.Code)
	}

	w = multipartUpload(t, h, "/quotes/9999/images", "frente.jpg")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestAttachSurfacesUploadFailure(t *testing.T) {
	h, _, host := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	created := decodeQuote(t, w)

	host.failUpload = true
	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", created.ID), "frente.jpg")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d body=%s", w.Code, w.Body.String())
	}

	// No half-attached metadata.
	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/quotes/%d", created.ID), "")
	if got := decodeQuote(t, w); len(got.Images.Data()) != 0 {
		t.Fatalf("expected no images got %v", got.Images.Data())
	}
}

func TestAttachCleansUpEarlierUploadsOnFailure(t *testing.T) {
	h, _, host := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	created := decodeQuote(t, w)

	// Second file fails after the first one already reached the host.
	host.failUploadAfter = 1
	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", created.ID), "frente.jpg", "motor.jpg")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d body=%s", w.Code, w.Body.String())
	}

	// The binary that got through must be deleted again, not stranded.
	if len(host.deleted) != 1 || host.deleted[0] != "quotes/obj-1" {
		t.Fatalf("expected cleanup of quotes/obj-1, got %v", host.deleted)
	}
	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/quotes/%d", created.ID), "")
	if got := decodeQuote(t, w); len(got.Images.Data()) != 0 {
		t.Fatalf("expected no images got %v", got.Images.Data())
	}
}

func TestDetachSurfacesRemoteFailureAndKeepsMetadata(t *testing.T) {
	h, _, host := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	created := decodeQuote(t, w)
	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", created.ID), "frente.jpg")
	imgs := decodeQuote(t, w).Images.Data()

	host.failDelete = true
	w = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/quotes/%d/images/%s", created.ID, imgs[0].ExternalID), "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/quotes/%d", created.ID), "")
	if got := decodeQuote(t, w); len(got.Images.Data()) != 1 {
		t.Fatalf("metadata must survive a failed remote delete, got %v", got.Images.Data())
	}
}

// Full walkthrough: create, approve, attach, detach.
func TestQuoteImageLifecycleScenario(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/quotes", `{"client":"Ana","type":"motor"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	q := decodeQuote(t, w)
	if q.OrderNumber != 1 || q.Status != models.StatusOpen || len(q.Images.Data()) != 0 {
		t.Fatalf("unexpected fresh quote: %+v", q)
	}

	w = doJSON(t, h, http.MethodPut, fmt.Sprintf("/quotes/%d", q.ID), `{"status":"Approved"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/quotes/%d", q.ID), "")
	got := decodeQuote(t, w)
	if got.Status != models.StatusApproved || got.Client != "Ana" {
		t.Fatalf("after approve: %+v", got)
	}

	w = multipartUpload(t, h, fmt.Sprintf("/quotes/%d/images", q.ID), "1.jpg")
	got = decodeQuote(t, w)
	imgs := got.Images.Data()
	if len(imgs) != 1 {
		t.Fatalf("after attach: %v", imgs)
	}

	w = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/quotes/%d/images/%s", q.ID, imgs[0].ExternalID), "")
	got = decodeQuote(t, w)
	if len(got.Images.Data()) != 0 {
		t.Fatalf("after detach: %v", got.Images.Data())
	}

	var body map[string]any
	w = doJSON(t, h, http.MethodGet, "/quotes", "")
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("list decode: %v", err)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("expected one listed quote, got %v", body["items"])
	}
}
