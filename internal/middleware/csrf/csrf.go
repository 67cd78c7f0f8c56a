// Package csrf guards cookie-authenticated requests with a double-submit
// token: a readable XSRF cookie whose value must be echoed in a header.
//
// Requests that carry no session cookie authenticate with a bearer header
// or a body token, which a foreign site cannot attach, so they pass
// unchecked.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Config struct {
	Skipper middleware.Skipper

	CookieName string
	HeaderName string
	Secure     bool
	MaxAge     time.Duration

	// SessionCookies are the cookies that authenticate a request.
	SessionCookies []string
}

func (cfg Config) withDefaults() Config {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "XSRF-TOKEN"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-CSRF-Token"
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return cfg
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			req := c.Request()

			token, err := ensureToken(c, cfg)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token")
			}

			if isSafe(req.Method) {
				c.Response().Header().Set(cfg.HeaderName, token)
				return next(c)
			}
			if !hasSessionCookie(req, cfg.SessionCookies) {
				return next(c)
			}

			if origin := req.Header.Get(echo.HeaderOrigin); origin != "" && !sameHost(origin, req.Host) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}
			got := req.Header.Get(cfg.HeaderName)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(c)
		}
	}
}

// ensureToken returns the token from the request cookie, issuing a new one
// when absent. The cookie is refreshed on every response.
func ensureToken(c echo.Context, cfg Config) (string, error) {
	var token string
	if ck, err := c.Cookie(cfg.CookieName); err == nil {
		token = ck.Value
	}
	if token == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		token = base64.RawURLEncoding.EncodeToString(b)
	}

	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Secure:   cfg.Secure,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func isSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func hasSessionCookie(req *http.Request, names []string) bool {
	for _, name := range names {
		if ck, err := req.Cookie(name); err == nil && ck.Value != "" {
			return true
		}
	}
	return false
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
