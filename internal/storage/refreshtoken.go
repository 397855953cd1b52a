package storage

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

var (
	logger = log.With().Str("component", "storage").Logger()
)

func AddRefreshToken(db *gormw.DB, refreshToken *models.RefreshToken) error {
	return db.Create(refreshToken).Error
}

func GetRefreshTokenBySign(db *gormw.DB, sign string) (*models.RefreshToken, error) {
	o := &models.RefreshToken{}
	if err := db.Where("sign = ?", sign).First(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// MarkRefreshTokenUsed reports false when the token was already used, also
// when a concurrent refresh got there first.
func MarkRefreshTokenUsed(db *gormw.DB, refreshToken *models.RefreshToken) (bool, error) {
	res := db.Model(&models.RefreshToken{}).
		Where("sign = ? AND used = ?", refreshToken.Sign, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func RevokeRefreshToken(db *gormw.DB, sign string) error {
	return db.Model(&models.RefreshToken{}).Where("sign = ?", sign).Update("revoked", true).Error
}

// RevokeUserRefreshTokens is used on replay detection: every token of the
// user becomes unusable.
func RevokeUserRefreshTokens(db *gormw.DB, userID uint) error {
	return db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Update("revoked", true).Error
}

// Refresh token will exists in database forever if not register a cleaner.
func RegisterRefreshTokensCleaner(scheduler gocron.Scheduler, db *gormw.DB) error {
	_, err := scheduler.NewJob(
		gocron.CronJob(
			// 4am Daily
			"0 4 * * *",
			false,
		),
		gocron.NewTask(
			func() {
				n, err := CleanExpiredRefreshTokens(db, time.Now().AddDate(0, 0, -1))
				if err != nil {
					logger.Error().Err(err).Msg("Failed to clean up expired refresh tokens")
					return
				}
				logger.Info().Int64("deleted", n).Msg("Cleaned up expired refresh tokens")
			},
		),
	)
	return err
}

func CleanExpiredRefreshTokens(db *gormw.DB, before time.Time) (int64, error) {
	res := db.Where("expires_at < ?", before.UTC()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
