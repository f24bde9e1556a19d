package util

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// It falls back to the access_token cookie set by the OAuth2 redirect flow.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) < 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
