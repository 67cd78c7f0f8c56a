// Package account handles registration and profile reads.
package account

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/Skotchmaster/vidtube/internal/apperr"
	"github.com/Skotchmaster/vidtube/internal/hash"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/models"
	"github.com/Skotchmaster/vidtube/internal/mykafka"
	"github.com/Skotchmaster/vidtube/internal/repo"
	"github.com/Skotchmaster/vidtube/internal/upload"
)

const (
	MsgAllFieldsRequired = "all fields are required"
	MsgAccountExists     = "user with email or username already exists"
	MsgAvatarRequired    = "avatar is required"
	MsgRegisterFailed    = "something went wrong while registering the user"
	MsgUserNotFound      = "user does not exist"
)

type Store interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

type Indexer interface {
	IndexAccount(ctx context.Context, a models.PublicAccount) error
}

type Service struct {
	Store    Store
	Uploader upload.Uploader

	// Optional.
	Events     mykafka.Publisher
	EventTopic string
	Directory  Indexer
}

// RegisterInput carries the form fields and the paths of the staged uploads.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.PublicAccount, error) {
	l := logging.FromContext(ctx).With("svc", "account.register")

	staged := []string{in.AvatarPath, in.CoverImagePath}
	if err := s.precheck(ctx, in); err != nil {
		discard(staged...)
		return nil, err
	}

	avatarURL, err := s.Uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		discard(in.CoverImagePath)
		l.Warn("register_failed", "status", 400, "reason", "avatar upload", "error", err)
		return nil, apperr.Wrap(apperr.Validation(MsgAvatarRequired), err)
	}

	var coverURL string
	if in.CoverImagePath != "" {
		if coverURL, err = s.Uploader.Upload(ctx, in.CoverImagePath); err != nil {
			l.Warn("cover_upload_failed", "error", err)
			coverURL = ""
		}
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperr.Internal(MsgRegisterFailed, err)
	}

	acc := &models.Account{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: pwHash,
	}
	if err := s.Store.Create(ctx, acc); err != nil {
		s.discardUploads(ctx, avatarURL, coverURL)
		switch {
		case errors.Is(err, repo.ErrAccountExists):
			l.Warn("register_failed", "status", 409, "reason", "user already exist")
			return nil, apperr.Conflict(MsgAccountExists)
		case errors.Is(err, models.ErrMissingField):
			l.Warn("register_failed", "status", 400, "reason", "missing field", "error", err)
			return nil, apperr.Wrap(apperr.Validation(MsgAllFieldsRequired), err)
		default:
			l.Error("register_failed", "status", 500, "reason", "create account", "error", err)
			return nil, apperr.Internal(MsgRegisterFailed, err)
		}
	}

	created, err := s.Store.FindByID(ctx, acc.ID)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "reload account", "error", err)
		return nil, apperr.Internal(MsgRegisterFailed, err)
	}
	pub := created.Public()

	mykafka.Emit(ctx, s.Events, s.EventTopic, mykafka.NewAccountEvent(mykafka.EventUserRegistered, pub.ID, pub.Username))
	if s.Directory != nil {
		if err := s.Directory.IndexAccount(ctx, pub); err != nil {
			l.Error("index_account_failed", "account_id", pub.ID, "error", err)
		}
	}

	l.Info("register_ok", "account_id", pub.ID)
	return &pub, nil
}

func (s *Service) precheck(ctx context.Context, in RegisterInput) error {
	l := logging.FromContext(ctx).With("svc", "account.register")

	for _, f := range []string{in.Username, in.Email, in.FullName, in.Password} {
		if strings.TrimSpace(f) == "" {
			l.Warn("register_failed", "status", 400, "reason", "empty field")
			return apperr.Validation(MsgAllFieldsRequired)
		}
	}

	exists, err := s.Store.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "exists check", "error", err)
		return apperr.Internal(MsgRegisterFailed, err)
	}
	if exists {
		l.Warn("register_failed", "status", 409, "reason", "user already exist")
		return apperr.Conflict(MsgAccountExists)
	}

	if in.AvatarPath == "" {
		l.Warn("register_failed", "status", 400, "reason", "no avatar")
		return apperr.Validation(MsgAvatarRequired)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, id string) (*models.PublicAccount, error) {
	acc, err := s.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		logging.FromContext(ctx).Error("profile_failed", "account_id", id, "error", err)
		return nil, apperr.Internal("", err)
	}
	pub := acc.Public()
	return &pub, nil
}

// discardUploads removes objects stored for an account that was never
// created. Objects that cannot be removed are logged by URL.
func (s *Service) discardUploads(ctx context.Context, urls ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.Uploader.Delete(ctx, u); err != nil {
			logging.FromContext(ctx).Error("orphaned_upload", "url", u, "error", err)
		}
	}
}

func discard(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}
