package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/danielrocha92/zero20garage-api-orcamentos/httpx"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/config"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/handlers"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/media"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/middleware"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/quotes"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/sequence"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, host media.Host, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check (SELECT 1) – no detail in the body
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	seq := sequence.New(db, "quotes", cfg.SequenceMaxRetries)
	svc := quotes.NewService(db, seq, host)

	qh := handlers.NewQuoteHandler(svc)
	mux.HandleFunc("GET /quotes", qh.List)
	mux.HandleFunc("POST /quotes", qh.Create)
	mux.HandleFunc("GET /quotes/{id}", qh.Get)
	mux.HandleFunc("PUT /quotes/{id}", qh.Update)
	mux.HandleFunc("DELETE /quotes/{id}", qh.Delete)

	ih := handlers.NewImageHandler(svc, host)
	mux.HandleFunc("POST /quotes/{id}/images", ih.Attach)
	mux.HandleFunc("DELETE /quotes/{id}/images/{externalId...}", ih.Detach)

	// Dev convenience: serve local uploads so attached URLs resolve.
	if cfg.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Zero20 Garage quotes API - see /quotes"))
	})

	chain := middleware.Timeout(cfg.RequestTimeout, mux)
	chain = withRecover(withLogging(chain))
	return middleware.CORS(cfg.AllowedOrigins, chain)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("panic", rec).Error("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
