package knowledge

import (
	"sync"
	"time"

	"ktassist/pkg/domain"
)

// Session is the explicit per-user context: documents and chat history live
// here instead of in process globals. Pipeline operations hold the session
// lock, so turns on one session run strictly one after another.
type Session struct {
	ID        string
	Email     string
	CreatedAt time.Time
	Documents *DocumentStore

	op      sync.Mutex // serializes pipeline operations
	mu      sync.RWMutex
	history []domain.ChatTurn
}

func NewSession(id, email string) *Session {
	return &Session{
		ID:        id,
		Email:     email,
		CreatedAt: time.Now().UTC(),
		Documents: NewDocumentStore(),
	}
}

// History returns a copy of the chat turns, oldest first.
func (s *Session) History() []domain.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) appendTurn(turn domain.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turn)
}
