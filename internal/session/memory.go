package session

import (
	"context"
	"sync"
	"time"

	"subjecthub/internal/models"
)

// MemoryStore is an in-process Store for single-instance deployments without
// Redis. Expired entries are dropped lazily on lookup and by the sweeper.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time

	sweeping  bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// StartSweeper runs Sweep every interval until Close. Calling it again is a no-op.
func (m *MemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	if m.sweeping {
		m.mu.Unlock()
		return
	}
	m.sweeping = true
	m.mu.Unlock()

	go m.sweepLoop(interval)
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(m.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close stops the sweeper and waits for it to exit. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	sweeping := m.sweeping
	m.mu.Unlock()
	if sweeping {
		<-m.doneCh
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, sess models.Session) (string, error) {
	sess.Token = newToken()

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()

	return sess.Token, nil
}

func (m *MemoryStore) Lookup(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, token)
		return nil, nil
	}
	return &sess, nil
}

func (m *MemoryStore) Destroy(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Sweep removes every expired session and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
