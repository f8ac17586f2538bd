// AngelaMos | 2026
// cookie.go

package auth

import (
	"net/http"
	"time"

	"github.com/acquisitions/api/internal/config"
	"github.com/acquisitions/api/internal/middleware"
)

type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// NewCookieOptions marks the cookie Secure only in production so local
// development over plain HTTP keeps working.
func NewCookieOptions(cfg config.CookieConfig, production bool) CookieOptions {
	name := cfg.Name
	if name == "" {
		name = middleware.DefaultCookieName
	}
	return CookieOptions{
		Name:   name,
		MaxAge: cfg.MaxAge,
		Secure: production,
	}
}

func (o CookieOptions) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (o CookieOptions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
