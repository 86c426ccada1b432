package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"subjecthub/internal/blobstore"
	"subjecthub/internal/models"
	"subjecthub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRepoStub struct {
	getByIDFn       func(ctx context.Context, id uint) (*models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	createFn        func(ctx context.Context, user *models.User) error
	countFn         func(ctx context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(context.Context, uint) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		countFn:         func(context.Context) (int64, error) { return 0, nil },
	}
}

type subjectRepoStub struct {
	countFn    func(ctx context.Context, filter repository.SubjectFilter) (int64, error)
	findPageFn func(ctx context.Context, filter repository.SubjectFilter, skip, limit int) ([]models.Subject, error)
	createFn   func(ctx context.Context, subject *models.Subject) error

	mu         sync.Mutex
	countCalls int
	findCalls  int
}

func (s *subjectRepoStub) Count(ctx context.Context, filter repository.SubjectFilter) (int64, error) {
	s.mu.Lock()
	s.countCalls++
	s.mu.Unlock()
	return s.countFn(ctx, filter)
}

func (s *subjectRepoStub) FindPage(ctx context.Context, filter repository.SubjectFilter, skip, limit int) ([]models.Subject, error) {
	s.mu.Lock()
	s.findCalls++
	s.mu.Unlock()
	return s.findPageFn(ctx, filter, skip, limit)
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	return s.createFn(ctx, subject)
}

type blobStoreStub struct {
	putFn    func(ctx context.Context, obj blobstore.Object) (string, error)
	deleteFn func(ctx context.Context, key string) error

	deleted []string
}

func (s *blobStoreStub) Put(ctx context.Context, obj blobstore.Object) (string, error) {
	return s.putFn(ctx, obj)
}

func (s *blobStoreStub) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, key)
}

func (s *blobStoreStub) URL(key string) string {
	return "/uploads/" + key
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Subject{}))
	return db
}

func testUpload() blobstore.Object {
	return blobstore.Object{Name: "a.png", ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png"))}
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
