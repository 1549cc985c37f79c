package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// NewMaxBodySizeHandler caps request bodies at limit bytes. A request whose
// Content-Length already exceeds the limit is answered with 413 and the API
// error envelope without running next. Other bodies are wrapped in
// http.MaxBytesReader, so decoding fails once the limit is crossed and the
// handler reports the same 413. A limit of zero or less disables the check.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeTooLarge(w, limit)
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooLarge(w http.ResponseWriter, limit int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "payload_too_large",
			"message": "limit is " + strconv.FormatInt(limit, 10) + " bytes",
		},
	})
}
