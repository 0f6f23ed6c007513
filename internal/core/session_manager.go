package core

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/db"
	"habbit-backend-go/internal/models"
)

// SessionManager owns one reconciler per signed-in identity. Logging in again for
// the same identity replaces the prior session (and its remote subscription);
// logging out detaches without touching the local cache.
type SessionManager struct {
	repo   db.SnapshotRepository
	cache  cache.Store
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Reconciler
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(repo db.SnapshotRepository, cacheStore cache.Store, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		repo:     repo,
		cache:    cacheStore,
		logger:   logger,
		sessions: make(map[string]*Reconciler),
	}
}

// Attach creates (or replaces) the session for an identity and attaches it to the
// remote document store. The returned reconciler is ready to serve its bootstrap
// snapshot even when the remote attach reported an error; the persistence gate
// stays closed in that case.
func (m *SessionManager) Attach(ctx context.Context, identity models.Identity) (*Reconciler, error) {
	m.mu.Lock()
	if prior, ok := m.sessions[identity.UID]; ok {
		prior.Detach()
	}
	r := NewReconciler(m.repo, m.cache, m.logger)
	m.sessions[identity.UID] = r
	m.mu.Unlock()

	err := r.AttachRemote(ctx, identity)
	return r, err
}

// Get returns the active session for a uid.
func (m *SessionManager) Get(uid string) (*Reconciler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[uid]
	return r, ok
}

// Detach ends the session for a uid. Unknown uids are a no-op.
func (m *SessionManager) Detach(uid string) {
	m.mu.Lock()
	r, ok := m.sessions[uid]
	if ok {
		delete(m.sessions, uid)
	}
	m.mu.Unlock()
	if ok {
		r.Detach()
	}
}

// Shutdown detaches every session and waits for in-flight remote writes.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Reconciler, 0, len(m.sessions))
	for _, r := range m.sessions {
		sessions = append(sessions, r)
	}
	m.sessions = make(map[string]*Reconciler)
	m.mu.Unlock()

	for _, r := range sessions {
		r.Flush()
		r.Detach()
	}
}
