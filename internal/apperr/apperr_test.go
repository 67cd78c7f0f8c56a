package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("refresh: %w", Unauthorized("invalid refresh token"))

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInternal))
}

func TestError_InternalKeepsCauseOutOfMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("pq: connection refused")
	err := Internal("something went wrong", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)

	code, msg := StatusOf(err)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "something went wrong", msg)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "validation", err: Validation("all fields are required"), wantCode: 400, wantMsg: "all fields are required"},
		{name: "conflict", err: Conflict("exists"), wantCode: 409, wantMsg: "exists"},
		{name: "not found", err: NotFound("user does not exist"), wantCode: 404, wantMsg: "user does not exist"},
		{name: "unauthorized", err: Unauthorized("nope"), wantCode: 401, wantMsg: "nope"},
		{name: "too many", err: TooManyRequests("slow down"), wantCode: 429, wantMsg: "slow down"},
		{name: "empty message", err: &Error{Kind: KindNotFound}, wantCode: 404, wantMsg: "Not Found"},
		{name: "foreign error", err: errors.New("boom"), wantCode: 500, wantMsg: "internal server error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, msg := StatusOf(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	base := Validation("avatar is required")
	cause := errors.New("upload failed")
	err := Wrap(base, cause)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "avatar is required: upload failed", err.Error())
}
