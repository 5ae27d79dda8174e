package server

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS lets browser dashboards on the given origins read the status API.
// An empty list or "*" allows any origin.
func WithCORS(handler http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(handler)
}
