package api

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the explicit per-user interaction state: which student the
// user entered and which date they are looking at. It belongs to the
// presentation layer and is passed into core calls by reference, never
// held as ambient state.
type Session struct {
	Token        string `json:"token"`
	StudentID    string `json:"studentId"`
	SelectedDate string `json:"selectedDate,omitempty"`
}

// SessionStore is the in-memory session map of the HTTP host.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create opens a session for a verified student and returns it.
func (s *SessionStore) Create(studentID string) *Session {
	sess := &Session{
		Token:     uuid.New().String(),
		StudentID: studentID,
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get looks a session up by token.
func (s *SessionStore) Get(token string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

// SelectDate records the date the user is viewing.
func (s *SessionStore) SelectDate(token, dateKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	sess.SelectedDate = dateKey
	return true
}
