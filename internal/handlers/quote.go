package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielrocha92/zero20garage-api-orcamentos/httpx"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/quotes"
)

// QuoteHandler exposes the quote lifecycle over REST. All persistence
// rules live in the service; this layer only parses and maps errors.
type QuoteHandler struct {
	Svc *quotes.Service
}

func NewQuoteHandler(svc *quotes.Service) *QuoteHandler { return &QuoteHandler{Svc: svc} }

// List: GET /quotes?client=&type=&from=&to=&cursor=&limit=
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	f := quotes.ListFilters{
		Client: r.URL.Query().Get("client"),
		Type:   r.URL.Query().Get("type"),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	var ok bool
	if f.From, ok = parseDateParam(r, "from", false); !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD or RFC 3339", nil)
		return
	}
	if f.To, ok = parseDateParam(r, "to", true); !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD or RFC 3339", nil)
		return
	}
	page, err := h.Svc.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// Get: GET /quotes/{id}
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Create: POST /quotes
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in quotes.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", nil)
		return
	}
	q, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// Update: PUT /quotes/{id} — partial merge, absent fields keep their
// stored value.
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p quotes.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", nil)
		return
	}
	q, err := h.Svc.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Delete: DELETE /quotes/{id}
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "quote deleted"})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || n == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer", nil)
		return 0, false
	}
	return uint(n), true
}

// parseDateParam accepts YYYY-MM-DD or RFC 3339. Bare dates used as an
// upper bound are pushed to end of day so the range stays inclusive.
func parseDateParam(r *http.Request, name string, endOfDay bool) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// writeServiceError maps the service error taxonomy onto status codes.
// Messages stay generic; details only carry field violations.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *quotes.ValidationError
	var ese *quotes.ExternalServiceError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", "one or more fields are invalid", ve.Violations)
	case errors.Is(err, quotes.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", "quote not found", nil)
	case errors.Is(err, quotes.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "order_number_exists", "order number is already in use", nil)
	case errors.Is(err, quotes.ErrTransient):
		httpx.JSONError(w, http.StatusBadGateway, "store_unavailable", "the data store is under contention, retry shortly", nil)
	case errors.As(err, &ese):
		httpx.JSONError(w, http.StatusBadGateway, "media_host_error", "the media host rejected the operation", nil)
	case errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, http.StatusGatewayTimeout, "timeout", "the request took too long", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
	}
}
