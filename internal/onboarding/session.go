// Package onboarding runs the registration dialog: pick a language, give a
// name, give a companion's name. Registered users fall through to free chat.
package onboarding

import (
	"context"
	"sync"
)

// State is the step a chat's dialog is waiting on.
type State string

// Dialog states. Progress is forward-only; a failed validation re-enters the
// same state.
const (
	StateIdle                  State = "idle"
	StateAwaitingLanguage      State = "awaiting_language"
	StateAwaitingDisplayName   State = "awaiting_display_name"
	StateAwaitingCompanionName State = "awaiting_companion_name"
	StateActive                State = "active"
)

// Session is the per-chat dialog progress.
type Session struct {
	ChatID        string
	State         State
	LanguageCode  string
	DisplayName   string
	CompanionName string
}

// SessionStore keeps sessions between inbound messages. Load returns an Idle
// session when the chat has none.
type SessionStore interface {
	Load(ctx context.Context, chatID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID string) error
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Load returns a copy of the chat's session.
func (s *MemorySessionStore) Load(ctx context.Context, chatID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return &Session{ChatID: chatID, State: StateIdle}, nil
	}
	return &sess, nil
}

// Save stores a copy of sess.
func (s *MemorySessionStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ChatID] = *sess
	return nil
}

// Delete forgets the chat's session.
func (s *MemorySessionStore) Delete(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

// chatLocks serializes handling per chat. Entries are dropped once no
// goroutine holds or waits on them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[string]*chatLock)}
}

// lock acquires the chat's lock and returns its release func.
func (c *chatLocks) lock(chatID string) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}
