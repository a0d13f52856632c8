package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/avoronkov/laptopshop-backend/pkg/config"
)

// rawCookie returns the named cookie value without net/http's value
// sanitization. The cart cookie stores verbatim JSON, which the stdlib
// parser rejects, so the Cookie header is scanned by hand.
func rawCookie(r *http.Request, name string) string {
	for _, header := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(header, ";") {
			pair = strings.TrimSpace(pair)
			value, ok := strings.CutPrefix(pair, name+"=")
			if !ok {
				continue
			}
			return strings.Trim(value, `"`)
		}
	}
	return ""
}

// setRawCookie emits a Set-Cookie header verbatim, bypassing the stdlib's
// value sanitization for the same reason rawCookie exists.
func setRawCookie(w http.ResponseWriter, cfg config.CookiesConfig, name, value string) {
	parts := []string{
		fmt.Sprintf("%s=%s", name, value),
		"Path=/",
		fmt.Sprintf("Max-Age=%d", cfg.MaxAge),
		"HttpOnly",
		"SameSite=Lax",
	}
	if cfg.Secure {
		parts = append(parts, "Secure")
	}
	w.Header().Add("Set-Cookie", strings.Join(parts, "; "))
}

func clearCookie(w http.ResponseWriter, cfg config.CookiesConfig, name string) {
	parts := []string{name + "=", "Path=/", "Max-Age=0", "HttpOnly", "SameSite=Lax"}
	if cfg.Secure {
		parts = append(parts, "Secure")
	}
	w.Header().Add("Set-Cookie", strings.Join(parts, "; "))
}
