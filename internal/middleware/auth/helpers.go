package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidtube/internal/tokens"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	ctxClaims = "claims"
)

// Claims returns the verified access claims, or nil outside RequireLogin.
func Claims(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(ctxClaims).(*tokens.AccessClaims)
	return claims
}

// AccountID returns the authenticated account id, or "" outside RequireLogin.
func AccountID(c echo.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.Subject
	}
	return ""
}
