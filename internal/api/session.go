package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/swissdoc/apply-agent/internal/engine"
	"github.com/swissdoc/apply-agent/internal/models"
)

// sessionEntry pairs one engine session with its loaded profile. The
// entry's mutex serializes all operations for that session, so each user
// advances through the catalog strictly one action at a time.
type sessionEntry struct {
	mu      sync.Mutex
	session *engine.Session
	profile *models.UserProfile
}

// sessionRegistry holds live sessions keyed by opaque token. Draft state
// lives only here and dies with the process.
type sessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{entries: make(map[string]*sessionEntry)}
}

// add registers a session under a fresh token and returns the token.
func (r *sessionRegistry) add(session *engine.Session, profile *models.UserProfile) string {
	token := uuid.NewString()
	session.ID = token

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[token] = &sessionEntry{session: session, profile: profile}
	return token
}

// get looks up the entry for a token.
func (r *sessionRegistry) get(token string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	return e, ok
}

// remove drops a session; its drafts are gone for good.
func (r *sessionRegistry) remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}
