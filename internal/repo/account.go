package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/vidtube/internal/models"
)

func (r *GormRepo) Create(ctx context.Context, a *models.Account) error {
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// FindByIdentifier matches either the username or the email, both stored normalized.
func (r *GormRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	username := models.NormalizeUsername(identifier)
	email := models.NormalizeEmail(identifier)
	if username == "" {
		return nil, ErrAccountNotFound
	}

	var a models.Account
	if err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *GormRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("username = ? OR email = ?", models.NormalizeUsername(username), models.NormalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return count > 0, nil
}

// SetRefreshToken overwrites the stored refresh token; nil clears it.
// UpdateColumn skips hooks, so the rest of the row is not re-validated.
// An unknown id is not an error.
func (r *GormRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token", token).Error; err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

func (r *GormRepo) GetRefreshToken(ctx context.Context, id string) (*string, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Select("id", "refresh_token").
		Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return a.RefreshToken, nil
}

// SwapRefreshToken replaces expected with next only if expected is still stored.
func (r *GormRepo) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		UpdateColumn("refresh_token", next)
	if res.Error != nil {
		return false, fmt.Errorf("swap refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
