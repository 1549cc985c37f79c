package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsPreflightMaxAge is how long, in seconds, browsers may cache a preflight.
const corsPreflightMaxAge = 600

// NewCORSHandler returns a middleware that lets the listed browser origins
// call the API. Origins are full scheme+host values without a trailing slash.
// The X-User-ID identity header is accepted on requests and X-Request-Id is
// exposed on responses so the frontend can quote it in bug reports.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         corsPreflightMaxAge,
	})
	return c.Handler
}
