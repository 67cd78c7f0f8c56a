package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/vidtube/internal/account"
	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/middleware/auth"
	"github.com/Skotchmaster/vidtube/internal/models"
	"github.com/Skotchmaster/vidtube/internal/search"
	"github.com/Skotchmaster/vidtube/internal/util"
)

type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (*models.PublicAccount, error)
	Profile(ctx context.Context, id string) (*models.PublicAccount, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (*search.Result, error)
}

type AccountHTTP struct {
	Accounts  Accounts
	Search    Searcher
	UploadDir string
}

func (h *AccountHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_register")

	avatarPath, err := h.stage(c, "avatar")
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "stage avatar", "error", err)
		return apperr.Internal(account.MsgRegisterFailed, err)
	}
	coverPath, err := h.stage(c, "coverImage")
	if err != nil {
		if avatarPath != "" {
			_ = os.Remove(avatarPath)
		}
		l.Error("register_error", "status", 500, "reason", "stage cover image", "error", err)
		return apperr.Internal(account.MsgRegisterFailed, err)
	}

	created, err := h.Accounts.Register(ctx, account.RegisterInput{
		Username:       c.FormValue("username"),
		Email:          c.FormValue("email"),
		FullName:       c.FormValue("fullName"),
		Password:       c.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		return err
	}

	l.Info("register_successful", "account_id", created.ID)
	return respond(c, http.StatusCreated, created, "User registered successfully")
}

// stage copies the named multipart file into UploadDir and returns its path,
// or "" when the request has no such file.
func (h *AccountHTTP) stage(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	return saveTemp(fh, h.UploadDir)
}

func saveTemp(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copy %s: %w", fh.Filename, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close temp: %w", err)
	}
	return dst.Name(), nil
}

func (h *AccountHTTP) CurrentUser(c echo.Context) error {
	ctx := c.Request().Context()

	acc, err := h.Accounts.Profile(ctx, auth.AccountID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc, "current user fetched successfully")
}

func (h *AccountHTTP) SearchAccounts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account_search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperr.Validation("query is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	res, err := h.Search.Search(ctx, q, from, size)
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return apperr.Internal("search failed", err)
	}
	return respond(c, http.StatusOK, res, "")
}
