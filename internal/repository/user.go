// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"subjecthub/internal/models"
	"subjecthub/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID returns nil, nil when no user has the id.
func (r *userRepository) GetByID(ctx context.Context, id uint) (user *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "GetByID", "users")
	defer func() { observability.EndSpan(span, err) }()

	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStoreError(err)
	}
	return &u, nil
}

// GetByUsername matches the username exactly. It returns nil, nil when absent.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "GetByUsername", "users")
	defer func() { observability.EndSpan(span, err) }()

	var u models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStoreError(err)
	}
	return &u, nil
}

// Create inserts user in a single statement. Conflicts on the username or email
// index come back as *UniqueViolationError.
func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "Create", "users")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if uv, ok := asUniqueViolation(err, "users"); ok {
			return uv
		}
		return models.NewStoreError(err)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (total int64, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "Count", "users")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, models.NewStoreError(err)
	}
	return total, nil
}
