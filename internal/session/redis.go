package session

import (
	"context"
	"fmt"
	"time"

	"subjecthub/internal/cache"
	"subjecthub/internal/models"
	"subjecthub/internal/observability"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(token string) string {
	return keyPrefix + token
}

func (s *RedisStore) Create(ctx context.Context, sess models.Session) (token string, err error) {
	ctx, span := observability.StartRedisSpan(ctx, "session.create")
	defer func() { observability.EndSpan(span, err) }()

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return "", fmt.Errorf("session already expired")
	}

	sess.Token = newToken()
	if err := cache.SetJSON(ctx, s.client, sessionKey(sess.Token), sess, ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess.Token, nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (_ *models.Session, err error) {
	ctx, span := observability.StartRedisSpan(ctx, "session.lookup")
	defer func() { observability.EndSpan(span, err) }()

	if token == "" {
		return nil, nil
	}

	var sess models.Session
	found, err := cache.GetJSON(ctx, s.client, sessionKey(token), &sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found || sess.Expired(s.now()) {
		return nil, nil
	}
	sess.Token = token
	return &sess, nil
}

func (s *RedisStore) Destroy(ctx context.Context, token string) (err error) {
	ctx, span := observability.StartRedisSpan(ctx, "session.destroy")
	defer func() { observability.EndSpan(span, err) }()

	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
