package auth

import (
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/tokens"
)

const (
	MsgUnauthorizedRequest = "unauthorized request"
	MsgInvalidAccessToken  = "invalid access token"
)

type AccessVerifier interface {
	VerifyAccessToken(token string) (*tokens.AccessClaims, error)
}

// RequireLogin admits requests carrying a valid access token in the
// accessToken cookie or an Authorization: Bearer header.
func RequireLogin(v AccessVerifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ctxClaims,
		TokenLookup: "cookie:" + AccessCookie + ",header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return v.VerifyAccessToken(raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("mw", "require_login")
			if !hasAccessToken(c) {
				l.Warn("auth_failed", "status", 401, "reason", "no access token")
				return apperr.Unauthorized(MsgUnauthorizedRequest)
			}
			l.Warn("auth_failed", "status", 401, "reason", "token verification", "error", err)
			return apperr.Wrap(apperr.Unauthorized(MsgInvalidAccessToken), err)
		},
	})
}

func hasAccessToken(c echo.Context) bool {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return true
	}
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	return ok && strings.TrimSpace(token) != ""
}
