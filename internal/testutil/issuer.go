package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/vidtube/internal/tokens"
)

const (
	AccessSecret  = "test-access-secret"
	RefreshSecret = "test-refresh-secret"
)

func NewIssuer(t *testing.T) *tokens.Issuer {
	t.Helper()

	iss, err := tokens.NewIssuer(tokens.Config{
		AccessSecret:  []byte(AccessSecret),
		RefreshSecret: []byte(RefreshSecret),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "vidtube-test",
	})
	require.NoError(t, err)
	return iss
}
