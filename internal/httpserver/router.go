package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/middleware/auth"
	"github.com/Skotchmaster/vidtube/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/vidtube/internal/middleware/logging"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Logger *slog.Logger

	AuthHandler    *AuthHTTP
	AccountHandler *AccountHTTP
	Verifier       auth.AccessVerifier

	Metrics http.Handler
	Ready   []ReadyCheck

	CSRF      bool
	StaticDir string
}

// New builds the echo instance with middleware and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(middleware.BodyLimit("10M"))
	e.Use(middleware.Secure())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readiness(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	if d.StaticDir != "" {
		e.Static("/static", d.StaticDir)
	}

	users := e.Group("/api/v1/users")
	if d.CSRF {
		users.Use(csrf.Middleware(csrf.Config{
			Secure:         d.AuthHandler.CookieSecure,
			SessionCookies: []string{auth.AccessCookie, auth.RefreshCookie},
			Skipper: func(c echo.Context) bool {
				switch c.Path() {
				case "/api/v1/users/register", "/api/v1/users/login":
					return true
				}
				return false
			},
		}))
	}

	users.POST("/register", d.AccountHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refresh-token", d.AuthHandler.Refresh)
	if d.AccountHandler.Search != nil {
		users.GET("/search", d.AccountHandler.SearchAccounts)
	}

	requireLogin := auth.RequireLogin(d.Verifier)
	users.POST("/logout", d.AuthHandler.Logout, requireLogin)
	users.GET("/current-user", d.AccountHandler.CurrentUser, requireLogin)
}

func readiness(checks []ReadyCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, rc := range checks {
			if err := rc.Check(ctx); err != nil {
				logging.FromContext(ctx).Warn("not_ready", "dependency", rc.Name, "error", err)
				failed[rc.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "failed": failed})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
