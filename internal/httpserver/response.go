package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/logging"
)

type Response struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{Status: status, Data: data, Message: message, Success: status < 400})
}

// ErrorHandler renders every error as an ErrorResponse. Only *apperr.Error and
// *echo.HTTPError messages reach the client; anything else becomes a 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)

	var ae *apperr.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ae):
		status, msg = apperr.StatusOf(ae)
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = fmt.Sprint(he.Message)
		}
	}

	if status >= 500 {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", status, "error", err)
	}

	body := ErrorResponse{Status: status, Message: msg, Success: false}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
