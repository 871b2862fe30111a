package middleware

import (
	"net/http"
	"strings"
)

// CORS answers preflights and stamps the usual headers. allowed is the
// comma-separated origin list from configuration; empty or "*" allows
// every caller (the workshop frontend runs on a couple of known hosts
// in production, anything in development).
func CORS(allowed string, next http.Handler) http.Handler {
	origins := map[string]bool{}
	wildcard := allowed == "" || allowed == "*"
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(strings.TrimRight(o, "/")); o != "" {
			origins[o] = true
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && origins[strings.TrimRight(origin, "/")]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
