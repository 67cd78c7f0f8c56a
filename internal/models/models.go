package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMissingField = errors.New("missing required field")

type Account struct {
	ID           string    `gorm:"primaryKey;size:36"          json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"        json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"`
	FullName     string    `gorm:"index;not null"              json:"fullName"`
	Avatar       string    `gorm:"not null"                    json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `gorm:"serializer:json"             json:"watchHistory"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicAccount is what leaves the service: no password hash, no refresh token.
type PublicAccount struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Account) Public() PublicAccount {
	history := a.WatchHistory
	if history == nil {
		history = []string{}
	}
	return PublicAccount{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		FullName:     a.FullName,
		Avatar:       a.Avatar,
		CoverImage:   a.CoverImage,
		WatchHistory: history,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func NormalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Validate checks the fields every persisted account must carry.
func (a *Account) Validate() error {
	switch {
	case a.Username == "":
		return fieldError("username")
	case a.Email == "":
		return fieldError("email")
	case strings.TrimSpace(a.FullName) == "":
		return fieldError("fullName")
	case a.Avatar == "":
		return fieldError("avatar")
	case a.PasswordHash == "":
		return fieldError("password")
	}
	return nil
}

func fieldError(name string) error {
	return &FieldError{Field: name}
}

type FieldError struct {
	Field string
}

func (e *FieldError) Error() string { return ErrMissingField.Error() + ": " + e.Field }

func (e *FieldError) Unwrap() error { return ErrMissingField }

// BeforeSave runs on Create and Save. Single-column writes made with
// UpdateColumn skip it.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Username = NormalizeUsername(a.Username)
	a.Email = NormalizeEmail(a.Email)
	a.FullName = strings.TrimSpace(a.FullName)
	return a.Validate()
}
