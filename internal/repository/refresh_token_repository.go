package repository

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormRefreshTokenRepository is a GORM implementation of RefreshTokenRepository
type GormRefreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

// Create persists a refresh token record
func (r *GormRefreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

// FindByID finds a refresh token by its jti
func (r *GormRefreshTokenRepository) FindByID(id string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.Where("id = ?", id).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Revoke sets revoked_at only if the token is still live
func (r *GormRefreshTokenRepository) Revoke(id string, at time.Time) (bool, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RevokeAllForUser revokes all live tokens of a user
func (r *GormRefreshTokenRepository) RevokeAllForUser(userID uint64, at time.Time) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

// DeleteExpired removes expired tokens
func (r *GormRefreshTokenRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", before).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
