package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAccount() *Account {
	token := "refresh-token"
	return &Account{
		Username:     "  Ada ",
		Email:        "ADA@X.io ",
		FullName:     " Ada Lovelace ",
		Avatar:       "https://cdn.example/avatar.png",
		PasswordHash: "$2a$10$hash",
		RefreshToken: &token,
	}
}

func TestAccount_BeforeSave_NormalizesAndAssignsID(t *testing.T) {
	t.Parallel()

	a := validAccount()
	require.NoError(t, a.BeforeSave(nil))

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "ada", a.Username)
	assert.Equal(t, "ada@x.io", a.Email)
	assert.Equal(t, "Ada Lovelace", a.FullName)
}

func TestAccount_Validate_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(a *Account)
		field  string
	}{
		{name: "username", mutate: func(a *Account) { a.Username = " " }, field: "username"},
		{name: "email", mutate: func(a *Account) { a.Email = "" }, field: "email"},
		{name: "full name", mutate: func(a *Account) { a.FullName = "" }, field: "fullName"},
		{name: "avatar", mutate: func(a *Account) { a.Avatar = "" }, field: "avatar"},
		{name: "password", mutate: func(a *Account) { a.PasswordHash = "" }, field: "password"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := validAccount()
			tt.mutate(a)
			err := a.BeforeSave(nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestAccount_SecretsNeverSerialized(t *testing.T) {
	t.Parallel()

	a := validAccount()
	for _, v := range []any{a, a.Public()} {
		raw, err := json.Marshal(v)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.NotContains(t, out, "passwordHash")
		assert.NotContains(t, out, "PasswordHash")
		assert.NotContains(t, out, "refreshToken")
		assert.NotContains(t, out, "RefreshToken")
	}
}

func TestAccount_PublicWatchHistoryNeverNull(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(validAccount().Public())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"watchHistory":[]`)
}
