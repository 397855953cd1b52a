package gormw

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glog "gorm.io/gorm/logger"

	"github.com/charleshuang3/teams/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(&Config{LogLevel: glog.Silent})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	return db
}

func TestConfig_applyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected Config
	}{
		{
			name:   "empty uses single connection memory DB",
			config: Config{},
			expected: Config{
				DSN:          ":memory:",
				MaxOpenConns: 1,
				MaxIdleConns: 2,
				LogLevel:     glog.Info,
			},
		},
		{
			name: "postgres keeps pool settings",
			config: Config{
				DSN:          "postgres://localhost/teams",
				MaxOpenConns: 20,
				MaxIdleConns: 5,
				LogLevel:     glog.Warn,
			},
			expected: Config{
				DSN:          "postgres://localhost/teams",
				MaxOpenConns: 20,
				MaxIdleConns: 5,
				LogLevel:     glog.Warn,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.applyDefaults()
			assert.Equal(t, tt.expected, tt.config)
		})
	}
}

func TestTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Tx(ctx, func(tx *DB) error {
		require.NoError(t, tx.Create(&models.Team{Name: "Eng"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Team{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Tx(ctx, func(tx *DB) error {
		if err := tx.Create(&models.Team{Name: "Eng"}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{TeamID: 1, UserID: 1, RoleID: 1}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Ctx(ctx).Model(&models.Membership{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMembershipPrimaryKeyIsUnique(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&models.Membership{TeamID: 1, UserID: 1, RoleID: 1}).Error)
	assert.Error(t, db.Create(&models.Membership{TeamID: 1, UserID: 1, RoleID: 2}).Error)
}
