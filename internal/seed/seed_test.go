package seed

import (
	"context"
	"testing"

	"subjecthub/internal/database"
	"subjecthub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestSeeder_Subjects(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewSeeder(db, 42)

	subjects, err := s.Subjects(context.Background(), 15)
	require.NoError(t, err)
	assert.Len(t, subjects, 15)

	var stored []models.Subject
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 15)
	for _, subject := range stored {
		assert.NotEmpty(t, subject.Title)
		assert.Contains(t, levels, subject.Details["level"])
	}

	none, err := s.Subjects(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSeeder_SameSeedSameContent(t *testing.T) {
	a := NewSeeder(nil, 7).BuildSubject()
	b := NewSeeder(nil, 7).BuildSubject()
	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Details, b.Details)
}

func TestSeeder_DemoUserIsIdempotent(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewSeeder(db, 1)
	s.cost = bcrypt.MinCost
	ctx := context.Background()

	first, err := s.DemoUser(ctx, "demo", "demo-password")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(first.PasswordHash), []byte("demo-password")))

	second, err := s.DemoUser(ctx, "demo", "other-password")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := s.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.ClearAll(ctx))
	count, err = s.UserCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
