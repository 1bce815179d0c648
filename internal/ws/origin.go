package ws

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

var (
	allowedOrigins     []string
	allowedOriginsOnce sync.Once
)

// loadAllowedOrigins reads the ALLOWED_ORIGINS environment variable (comma-
// separated) once. Empty defaults to the local frontend origin.
func loadAllowedOrigins() []string {
	allowedOriginsOnce.Do(func() {
		raw := os.Getenv("ALLOWED_ORIGINS")
		if raw == "" {
			raw = "http://localhost:3000"
		}
		for _, o := range strings.Split(raw, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	})
	return allowedOrigins
}

// CheckOrigin validates the Origin header against the configured allow-list.
// It is used as the CheckOrigin field of the websocket.Upgrader.
func CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Same-origin request or non-browser client.
		return true
	}
	for _, allowed := range loadAllowedOrigins() {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}
