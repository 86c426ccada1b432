package repository

import (
	"context"
	"strings"

	"subjecthub/internal/models"
	"subjecthub/internal/observability"

	"gorm.io/gorm"
)

// SubjectFilter narrows a subject listing. An empty Search matches every row.
type SubjectFilter struct {
	Search string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// scope applies a case-insensitive literal substring match over title and link.
func (f SubjectFilter) scope(db *gorm.DB) *gorm.DB {
	term := strings.TrimSpace(f.Search)
	if term == "" {
		return db
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return db.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(link_to_call) LIKE ? ESCAPE '\'`, pattern, pattern)
}

// SubjectRepository defines persistence operations for subjects.
type SubjectRepository interface {
	Count(ctx context.Context, filter SubjectFilter) (int64, error)
	FindPage(ctx context.Context, filter SubjectFilter, skip, limit int) ([]models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository returns a new SubjectRepository implementation.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) Count(ctx context.Context, filter SubjectFilter) (total int64, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "Count", "subjects")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.db.WithContext(ctx).
		Model(&models.Subject{}).
		Scopes(filter.scope).
		Count(&total).Error; err != nil {
		return 0, models.NewStoreError(err)
	}
	return total, nil
}

// FindPage returns at most limit subjects after skipping skip, in id order.
// The result is never nil.
func (r *subjectRepository) FindPage(ctx context.Context, filter SubjectFilter, skip, limit int) (items []models.Subject, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "FindPage", "subjects")
	defer func() { observability.EndSpan(span, err) }()

	subjects := make([]models.Subject, 0, limit)
	if err := r.db.WithContext(ctx).
		Scopes(filter.scope).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&subjects).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return subjects, nil
}

// Create inserts subject in a single statement.
func (r *subjectRepository) Create(ctx context.Context, subject *models.Subject) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), "Create", "subjects")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.db.WithContext(ctx).Create(subject).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
