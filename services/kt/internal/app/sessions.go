package app

import (
	"sync"
	"time"

	"ktassist/internal/util"
	"ktassist/pkg/knowledge"
)

type sessionEntry struct {
	session *knowledge.Session
	expires time.Time
}

// SessionManager holds live sessions in memory. Sessions do not survive a
// restart.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a fresh session for email and drops expired ones.
func (m *SessionManager) Create(email string) *knowledge.Session {
	sess := knowledge.NewSession(util.NewID(), email)
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, entry := range m.sessions {
		if now.After(entry.expires) {
			delete(m.sessions, id)
		}
	}
	m.sessions[sess.ID] = sessionEntry{session: sess, expires: now.Add(m.ttl)}
	return sess
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*knowledge.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expires) {
		delete(m.sessions, id)
		return nil, false
	}
	return entry.session, true
}

// Delete ends a session; unknown ids are ignored.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len counts stored sessions, expired ones included until swept.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
