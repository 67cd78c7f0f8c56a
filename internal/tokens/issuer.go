package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrConfig       = errors.New("invalid token issuer config")
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Now           func() time.Time
}

// Issuer signs and verifies the access/refresh pair. The two token kinds use
// different secrets, so neither can be forged from the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	switch {
	case len(cfg.AccessSecret) == 0:
		return nil, fmt.Errorf("%w: access secret is empty", ErrConfig)
	case len(cfg.RefreshSecret) == 0:
		return nil, fmt.Errorf("%w: refresh secret is empty", ErrConfig)
	case string(cfg.AccessSecret) == string(cfg.RefreshSecret):
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	case cfg.AccessTTL >= cfg.RefreshTTL:
		return nil, fmt.Errorf("%w: access lifetime must be shorter than refresh lifetime", ErrConfig)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           now,
	}, nil
}

func (i *Issuer) registered(subject string, ttl time.Duration) (jwt.RegisteredClaims, time.Time) {
	now := i.now().UTC()
	exp := now.Add(ttl)
	return jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}, exp
}

func (i *Issuer) IssueAccessToken(id Identity) (string, time.Time, error) {
	if id.ID == "" {
		return "", time.Time{}, errors.New("access token: empty account id")
	}
	rc, exp := i.registered(id.ID, i.accessTTL)
	claims := AccessClaims{
		Username:         id.Username,
		Email:            id.Email,
		FullName:         id.FullName,
		TokenType:        TypeAccess,
		RegisteredClaims: rc,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, exp, nil
}

func (i *Issuer) IssueRefreshToken(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("refresh token: empty account id")
	}
	rc, exp := i.registered(accountID, i.refreshTTL)
	claims := RefreshClaims{
		TokenType:        TypeRefresh,
		RegisteredClaims: rc,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, exp, nil
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}

func (i *Issuer) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(tokenStr, &claims, i.accessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess || claims.Subject == "" {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return &claims, nil
}

// VerifyRefreshToken checks signature, algorithm, expiry and token type.
// It says nothing about whether the token is still the current one for the account.
func (i *Issuer) VerifyRefreshToken(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(tokenStr, &claims, i.refreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh || claims.Subject == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return &claims, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }
