package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philview/philview/internal/models"
)

// DefaultSessionIdleTTL is how long an untouched session is kept.
const DefaultSessionIdleTTL = 30 * time.Minute

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

// NavigatorFactory builds the navigator that receives a session's actions.
type NavigatorFactory func(user *models.User) Navigator

// Manager tracks live chat sessions and expires idle ones.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	classifier IntentClassifier
	navigators NavigatorFactory
	nonces     NonceSource
	catalog    PropertyCatalog
	idleTTL    time.Duration
	now        func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNavigatorFactory sets how each session's navigator is built.
func WithNavigatorFactory(f NavigatorFactory) ManagerOption {
	return func(m *Manager) { m.navigators = f }
}

// WithSessionCatalog sets the property catalog shared by all sessions.
func WithSessionCatalog(c PropertyCatalog) ManagerOption {
	return func(m *Manager) { m.catalog = c }
}

// WithIdleTTL sets the idle expiry. Non-positive values keep the default.
func WithIdleTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

// WithSessionNonceSource sets the nonce source of every session's dispatcher.
func WithSessionNonceSource(src NonceSource) ManagerOption {
	return func(m *Manager) { m.nonces = src }
}

// WithManagerClock overrides time.Now.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager.
func NewManager(classifier IntentClassifier, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		classifier: classifier,
		idleTTL:    DefaultSessionIdleTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a new session for user (nil for a guest).
func (m *Manager) Create(user *models.User) *Session {
	var nav Navigator
	if m.navigators != nil {
		nav = m.navigators(user)
	}
	dispatcher := NewDispatcher(nav, WithNonceSource(m.nonces))
	id := uuid.NewString()
	s := NewSession(id, m.classifier, dispatcher, WithUser(user), WithCatalog(m.catalog), WithClock(m.now))

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	slog.Info("Manager.Create: session opened", "sessionID", id, "signedIn", user.SignedIn())
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End discards a session and its conversation state.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	slog.Info("Manager.End: session ended", "sessionID", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.RLock()
	live := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		live[id] = s
	}
	m.mu.RUnlock()

	// LastActive waits for an in-flight message, so it is read outside the manager lock.
	var expired []string
	for id, s := range live {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range expired {
		if s, ok := m.sessions[id]; ok && s == live[id] {
			delete(m.sessions, id)
			removed++
		}
	}
	slog.Debug("Manager.Sweep: expired idle sessions", "removed", removed, "remaining", len(m.sessions))
	return removed
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
