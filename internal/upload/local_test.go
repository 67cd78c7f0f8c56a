package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	u := &LocalUploader{Dir: filepath.Join(dir, "public"), PublicURL: "/static/"}

	src := writeTemp(t, "avatar.jpg", "jpeg-bytes")
	url, err := u.Upload(context.Background(), src)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/static/"))

	b, err := os.ReadFile(filepath.Join(u.Dir, strings.TrimPrefix(url, "/static/")))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(b))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	_, err = u.Upload(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestLocalUploader_Delete(t *testing.T) {
	t.Parallel()

	u := &LocalUploader{Dir: filepath.Join(t.TempDir(), "public"), PublicURL: "/static"}

	url, err := u.Upload(context.Background(), writeTemp(t, "avatar.jpg", "x"))
	require.NoError(t, err)
	stored := filepath.Join(u.Dir, strings.TrimPrefix(url, "/static/"))

	require.NoError(t, u.Delete(context.Background(), url))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, u.Delete(context.Background(), url))

	assert.ErrorIs(t, u.Delete(context.Background(), "/other/avatar.jpg"), ErrForeignURL)
	assert.ErrorIs(t, u.Delete(context.Background(), "/static/../secret"), ErrForeignURL)
}
