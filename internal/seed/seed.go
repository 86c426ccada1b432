// Package seed populates the database with demo subjects and an optional
// demo account. It is intended for development only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"subjecthub/internal/models"
	"subjecthub/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var levels = []string{"beginner", "intermediate", "advanced"}

// Seeder creates demo data.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	cost  int
}

// NewSeeder returns a Seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(seed), cost: bcrypt.DefaultCost}
}

// BuildSubject returns an unsaved subject with plausible content.
func (s *Seeder) BuildSubject() models.Subject {
	topic := s.faker.HipsterWord()
	return models.Subject{
		Title:       strings.ToUpper(topic[:1]) + topic[1:] + " " + s.faker.RandomString([]string{"basics", "workshop", "study group", "deep dive"}),
		LinkToCall:  "https://meet.example.com/" + s.faker.UUID(),
		Description: s.faker.Paragraph(1, 3, 12, " "),
		Details: map[string]string{
			"level":    s.faker.RandomString(levels),
			"language": s.faker.Language(),
			"host":     s.faker.Name(),
		},
	}
}

// Subjects creates n subjects in batches.
func (s *Seeder) Subjects(ctx context.Context, n int) ([]models.Subject, error) {
	if n <= 0 {
		return nil, nil
	}
	subjects := make([]models.Subject, n)
	for i := range subjects {
		subjects[i] = s.BuildSubject()
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&subjects, 100).Error; err != nil {
		return nil, fmt.Errorf("seed subjects: %w", err)
	}
	return subjects, nil
}

// DemoUser creates an account with the given credentials. An existing user
// with the same username is returned unchanged.
func (s *Seeder) DemoUser(ctx context.Context, username, password string) (*models.User, error) {
	users := repository.NewUserRepository(s.db)
	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserCount returns the number of registered accounts.
func (s *Seeder) UserCount(ctx context.Context) (int64, error) {
	return repository.NewUserRepository(s.db).Count(ctx)
}

// ClearAll removes every subject and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&models.Subject{}).Error; err != nil {
		return fmt.Errorf("clear subjects: %w", err)
	}
	if err := db.Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}
