package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Credentials are only allowed for explicit origins.
	credentials := true
	for _, origin := range origins {
		if origin == "*" {
			credentials = false
		}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-Correlation-ID", "X-Request-Timestamp"},
		ExposedHeaders:   []string{"Content-Length", "Location", "X-Request-ID", "X-Correlation-ID"},
		MaxAge:           3600,
		AllowCredentials: credentials,
	})

	return handler.Handler
}
