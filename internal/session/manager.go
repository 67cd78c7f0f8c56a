// Package session implements the login, logout and refresh lifecycle.
//
// An account has at most one live refresh token, stored on the account row.
// Refresh rotates it: the presented token must equal the stored one and is
// replaced by a fresh pair, so a second use of the same token is rejected.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/hash"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/models"
	"github.com/Skotchmaster/vidtube/internal/mykafka"
	"github.com/Skotchmaster/vidtube/internal/ratelimit"
	"github.com/Skotchmaster/vidtube/internal/repo"
	"github.com/Skotchmaster/vidtube/internal/tokens"
)

const (
	MsgIdentifierRequired  = "username or email is required"
	MsgUserNotFound        = "user does not exist"
	MsgInvalidCredentials  = "invalid user credentials"
	MsgTokenGeneration     = "something went wrong while generating access and refresh token"
	MsgUnauthorizedRequest = "unauthorized request"
	MsgInvalidRefreshToken = "invalid refresh token"
	MsgRefreshTokenUsed    = "refresh token is expired or used"
	MsgLogoutFailed        = "something went wrong while logging out"
	MsgTooManyAttempts     = "too many login attempts, try again later"
)

// Store is the slice of the account store the session lifecycle needs.
type Store interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}

// Throttle limits login attempts per account.
type Throttle interface {
	Hit(ctx context.Context, accountID string) error
	Reset(ctx context.Context, accountID string) error
}

type Recorder interface {
	Login(result string)
	Refresh(result string)
	Logout()
}

type Manager struct {
	Store  Store
	Issuer *tokens.Issuer

	// Optional.
	Events     mykafka.Publisher
	EventTopic string
	Metrics    Recorder
	Limiter    Throttle

	// StrictRotation persists a rotated token only if the presented one is
	// still stored, so at most one of several concurrent refreshes wins.
	// When false the last write wins.
	StrictRotation bool
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type LoginResult struct {
	Account models.PublicAccount
	Tokens  TokenPair
}

func (m *Manager) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "session.login")

	if strings.TrimSpace(identifier) == "" {
		m.recordLogin("invalid_request")
		l.Warn("login_failed", "status", 400, "reason", "empty identifier")
		return nil, apperr.Validation(MsgIdentifierRequired)
	}

	acc, err := m.Store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			m.recordLogin("not_found")
			l.Warn("login_failed", "status", 404, "reason", "user does not exist")
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		m.recordLogin("error")
		l.Error("login_failed", "status", 500, "reason", "account lookup", "error", err)
		return nil, apperr.Internal("", err)
	}

	if err := m.throttle(ctx, acc.ID); err != nil {
		m.recordLogin("rate_limited")
		l.Warn("login_failed", "status", 429, "reason", "rate limited", "account_id", acc.ID)
		return nil, err
	}

	if !hash.CheckPassword(acc.PasswordHash, password) {
		m.recordLogin("invalid_credentials")
		l.Warn("login_failed", "status", 401, "reason", "password mismatch", "account_id", acc.ID)
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	pair, err := m.issuePair(acc)
	if err == nil {
		err = m.Store.SetRefreshToken(ctx, acc.ID, &pair.RefreshToken)
	}
	if err != nil {
		m.recordLogin("error")
		l.Error("login_failed", "status", 500, "reason", "token issuance", "account_id", acc.ID, "error", err)
		return nil, apperr.Internal(MsgTokenGeneration, err)
	}

	if m.Limiter != nil {
		if err := m.Limiter.Reset(ctx, acc.ID); err != nil {
			l.Error("login_limiter_unavailable", "account_id", acc.ID, "error", err)
		}
	}

	m.recordLogin("success")
	m.publish(ctx, mykafka.NewAccountEvent(mykafka.EventUserLoggedIn, acc.ID, acc.Username))
	l.Info("login_ok", "account_id", acc.ID)

	return &LoginResult{Account: acc.Public(), Tokens: *pair}, nil
}

// throttle reserves an attempt for the account. A limiter that cannot reach
// its backend lets the attempt through.
func (m *Manager) throttle(ctx context.Context, accountID string) error {
	if m.Limiter == nil {
		return nil
	}
	err := m.Limiter.Hit(ctx, accountID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		return apperr.TooManyRequests(MsgTooManyAttempts)
	default:
		logging.FromContext(ctx).Error("login_limiter_unavailable", "account_id", accountID, "error", err)
		return nil
	}
}

// Logout clears the stored refresh token. It succeeds for accounts that are
// already logged out or no longer exist.
func (m *Manager) Logout(ctx context.Context, accountID string) error {
	l := logging.FromContext(ctx).With("svc", "session.logout", "account_id", accountID)

	if err := m.Store.SetRefreshToken(ctx, accountID, nil); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return apperr.Internal(MsgLogoutFailed, err)
	}

	if m.Metrics != nil {
		m.Metrics.Logout()
	}
	m.publish(ctx, mykafka.NewAccountEvent(mykafka.EventUserLoggedOut, accountID, ""))
	l.Info("logout_ok")
	return nil
}

func (m *Manager) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "session.refresh")

	if presented == "" {
		m.recordRefresh("missing")
		l.Warn("refresh_failed", "status", 401, "reason", "no refresh token")
		return nil, apperr.Unauthorized(MsgUnauthorizedRequest)
	}

	claims, err := m.Issuer.VerifyRefreshToken(presented)
	if err != nil {
		m.recordRefresh("invalid")
		l.Warn("refresh_failed", "status", 401, "reason", "token verification", "error", err)
		return nil, apperr.Wrap(apperr.Unauthorized(MsgInvalidRefreshToken), err)
	}

	acc, err := m.Store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			m.recordRefresh("invalid")
			l.Warn("refresh_failed", "status", 401, "reason", "account missing", "account_id", claims.Subject)
			return nil, apperr.Unauthorized(MsgInvalidRefreshToken)
		}
		m.recordRefresh("error")
		l.Error("refresh_failed", "status", 500, "reason", "account lookup", "error", err)
		return nil, apperr.Internal("", err)
	}

	if acc.RefreshToken == nil || *acc.RefreshToken != presented {
		return nil, m.reused(ctx, acc)
	}

	pair, err := m.issuePair(acc)
	if err != nil {
		m.recordRefresh("error")
		l.Error("refresh_failed", "status", 500, "reason", "token issuance", "account_id", acc.ID, "error", err)
		return nil, apperr.Internal(MsgTokenGeneration, err)
	}

	if m.StrictRotation {
		swapped, err := m.Store.SwapRefreshToken(ctx, acc.ID, presented, pair.RefreshToken)
		if err != nil {
			m.recordRefresh("error")
			l.Error("refresh_failed", "status", 500, "reason", "token swap", "account_id", acc.ID, "error", err)
			return nil, apperr.Internal(MsgTokenGeneration, err)
		}
		if !swapped {
			return nil, m.reused(ctx, acc)
		}
	} else if err := m.Store.SetRefreshToken(ctx, acc.ID, &pair.RefreshToken); err != nil {
		m.recordRefresh("error")
		l.Error("refresh_failed", "status", 500, "reason", "token persist", "account_id", acc.ID, "error", err)
		return nil, apperr.Internal(MsgTokenGeneration, err)
	}

	m.recordRefresh("success")
	m.publish(ctx, mykafka.NewAccountEvent(mykafka.EventTokenRefreshed, acc.ID, acc.Username))
	l.Info("refresh_ok", "account_id", acc.ID)
	return pair, nil
}

// reused reports a presented token that verifies but is no longer the stored one.
func (m *Manager) reused(ctx context.Context, acc *models.Account) error {
	m.recordRefresh("reused")
	logging.FromContext(ctx).Warn("refresh_failed",
		"svc", "session.refresh", "status", 401, "reason", "stale or replayed token", "account_id", acc.ID)
	m.publish(ctx, mykafka.NewAccountEvent(mykafka.EventRefreshTokenReused, acc.ID, acc.Username))
	return apperr.Unauthorized(MsgRefreshTokenUsed)
}

func (m *Manager) issuePair(acc *models.Account) (*TokenPair, error) {
	access, accessExp, err := m.Issuer.IssueAccessToken(tokens.Identity{
		ID:       acc.ID,
		Username: acc.Username,
		Email:    acc.Email,
		FullName: acc.FullName,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.Issuer.IssueRefreshToken(acc.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (m *Manager) publish(ctx context.Context, ev mykafka.AccountEvent) {
	mykafka.Emit(ctx, m.Events, m.EventTopic, ev)
}

func (m *Manager) recordLogin(result string) {
	if m.Metrics != nil {
		m.Metrics.Login(result)
	}
}

func (m *Manager) recordRefresh(result string) {
	if m.Metrics != nil {
		m.Metrics.Refresh(result)
	}
}
