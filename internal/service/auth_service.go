// Package service holds the application's use cases: authentication, subject listing and submission.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"subjecthub/internal/models"
	"subjecthub/internal/observability"
	"subjecthub/internal/repository"
	"subjecthub/internal/session"
	"subjecthub/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for stored passwords.
const PasswordHashCost = 10

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// dummyPasswordHash is compared against when the username is unknown so both
// failure paths spend the same bcrypt time.
func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("subjecthub-unknown-user"), PasswordHashCost)
	})
	return dummyHash
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthService struct {
	users    repository.UserRepository
	sessions session.Store
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, sessions session.Store, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		cost:     PasswordHashCost,
		now:      time.Now,
	}
}

// Register creates an account. It never logs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() {
		observability.EndSpan(span, err)
		observability.AuthAttempts.WithLabelValues("register", outcomeOf(err)).Inc()
	}()

	if in.Password != in.ConfirmPassword {
		return nil, models.NewPasswordMismatchError()
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError("password", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewStoreError(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		var uv *repository.UniqueViolationError
		if errors.As(err, &uv) {
			if uv.Field == "" {
				return nil, models.NewStoreError(err)
			}
			return nil, models.NewDuplicateFieldError(uv.Field)
		}
		return nil, models.AsAppError(err)
	}

	return user, nil
}

// Login verifies credentials and opens a session. Unknown users and wrong
// passwords produce the same INVALID_CREDENTIALS error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (_ *models.Session, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() {
		observability.EndSpan(span, err)
		observability.AuthAttempts.WithLabelValues("login", outcomeOf(err)).Inc()
	}()

	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.AsAppError(err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
		return nil, models.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewInvalidCredentialsError()
	}

	now := s.now()
	sess := models.Session{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	token, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	sess.Token = token

	return &sess, nil
}

// Logout destroys the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	defer func() {
		observability.AuthAttempts.WithLabelValues("logout", outcomeOf(err)).Inc()
	}()

	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

// Authenticate resolves a session token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.NewUnauthorizedError("Login required")
	}
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if sess == nil || sess.Expired(s.now()) {
		return nil, models.NewUnauthorizedError("Session expired")
	}
	return sess, nil
}

// CurrentUser re-reads the account behind sess. A session whose user no
// longer exists is UNAUTHORIZED.
func (s *AuthService) CurrentUser(ctx context.Context, sess *models.Session) (*models.User, error) {
	if sess == nil {
		return nil, models.NewUnauthorizedError("Login required")
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, models.AsAppError(err)
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Account no longer exists")
	}
	return user, nil
}

// outcomeOf maps err to a metrics label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case models.IsExpected(err):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeFailure
	}
}
