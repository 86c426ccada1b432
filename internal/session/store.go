// Package session keeps login sessions and signs the cookie that refers to them.
package session

import (
	"context"
	"errors"

	"subjecthub/internal/models"

	"github.com/google/uuid"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists sessions by token.
type Store interface {
	// Create stores s and returns its token. s.Token is ignored.
	Create(ctx context.Context, s models.Session) (string, error)
	// Lookup returns nil, nil when the token is unknown or expired.
	Lookup(ctx context.Context, token string) (*models.Session, error)
	// Destroy removes the session. Unknown tokens are not an error.
	Destroy(ctx context.Context, token string) error
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

func newToken() string {
	return uuid.NewString()
}
