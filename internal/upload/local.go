package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalUploader moves files into a directory served as static content.
// It stands in for S3 in local development.
type LocalUploader struct {
	Dir       string
	PublicURL string
}

func (u *LocalUploader) Upload(_ context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", ErrNoFile
	}
	defer os.Remove(localPath)

	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("upload: mkdir %s: %w", u.Dir, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("upload: open %s: %w", localPath, err)
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	dst, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return "", fmt.Errorf("upload: create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("upload: copy %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("upload: close %s: %w", name, err)
	}
	return strings.TrimRight(u.PublicURL, "/") + "/" + name, nil
}

func (u *LocalUploader) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, strings.TrimRight(u.PublicURL, "/")+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("upload: delete %s: %w", url, ErrForeignURL)
	}
	if err := os.Remove(filepath.Join(u.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload: delete %s: %w", name, err)
	}
	return nil
}
