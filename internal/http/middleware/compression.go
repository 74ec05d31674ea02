package middleware

import (
	"net/http"
	"strings"
)

// SkipCompressionForIcons wraps a compression middleware handler to skip
// compression for cached icon files. Icons are served as PNG or SVG;
// PNG is already compressed, so running it through gzip just burns CPU
// for a larger payload.
func SkipCompressionForIcons(compressionHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/icons/") {
				next.ServeHTTP(w, r)
				return
			}

			// Apply compression for all other requests, including the
			// XMLTV export, which compresses well
			compressedHandler.ServeHTTP(w, r)
		})
	}
}
