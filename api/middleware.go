package api

import (
	"net/http"

	"github.com/coreybb/thermowatch/webutil"
)

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}

// IngestKey rejects requests whose X-INGEST-KEY header (or ?key= parameter)
// does not match expected. An empty expected key disables the check.
func IngestKey(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return webutil.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
			provided := r.Header.Get(webutil.HeaderIngestKey)
			if provided == "" {
				provided = r.URL.Query().Get(webutil.QueryIngestKey)
			}
			if !webutil.KeysMatch(provided, expected) {
				return webutil.ErrUnauthorized("")
			}
			next.ServeHTTP(w, r)
			return nil
		})
	}
}
