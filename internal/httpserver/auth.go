package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/middleware/auth"
	"github.com/Skotchmaster/vidtube/internal/session"
)

type Sessions interface {
	Login(ctx context.Context, identifier, password string) (*session.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	Refresh(ctx context.Context, presented string) (*session.TokenPair, error)
}

type AuthHTTP struct {
	Sessions     Sessions
	CookieSecure bool
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHTTP) setSessionCookies(c echo.Context, pair *session.TokenPair) {
	c.SetCookie(CreateCookie(auth.AccessCookie, pair.AccessToken, "/", pair.AccessExp, h.CookieSecure))
	c.SetCookie(CreateCookie(auth.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, h.CookieSecure))
}

func (h *AuthHTTP) clearSessionCookies(c echo.Context) {
	c.SetCookie(DeleteCookie(auth.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(DeleteCookie(auth.RefreshCookie, "/", h.CookieSecure))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.Validation("invalid body")
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	res, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, &res.Tokens)
	l.Info("login_successful", "account_id", res.Account.ID)

	return respond(c, http.StatusOK, echo.Map{
		"user":         res.Account,
		"accessToken":  res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if err := h.Sessions.Logout(ctx, auth.AccountID(c)); err != nil {
		return err
	}

	h.clearSessionCookies(c)
	l.Info("successful_logout")
	return respond(c, http.StatusOK, echo.Map{}, "User logged out")
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var presented string
	if ck, err := c.Cookie(auth.RefreshCookie); err == nil {
		presented = ck.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			l.Debug("refresh_body_ignored", "error", err)
		}
		presented = req.RefreshToken
	}

	pair, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, pair)
	l.Info("refresh_successful")
	return respond(c, http.StatusOK, echo.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "Access token refreshed")
}
