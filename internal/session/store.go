// Package session holds per-user conversation state for the lifetime of the process.
package session

import (
	"sync"

	"librarian/internal/domain"
)

// Store is the session registry keyed by user id
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.Session
}

// NewStore creates an empty registry
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*domain.Session)}
}

// Touch creates the user's session if needed and reports whether it was created
func (s *Store) Touch(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; ok {
		return false
	}
	s.sessions[userID] = domain.NewSession()
	return true
}

// State returns the user's current state, idle when unknown
func (s *Store) State(userID int64) domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.State
	}
	return domain.StateIdle
}

// SetState sets the user's state
func (s *Store) SetState(userID int64, state domain.State) {
	s.update(userID, func(sess *domain.Session) {
		sess.State = state
	})
}

// Clear removes every trace of the user's session
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Snapshot returns a copy of the user's session
func (s *Store) Snapshot(userID int64) domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.Clone()
	}
	return *domain.NewSession()
}

// ClearContexts drops the user's pagination contexts
func (s *Store) ClearContexts(userID int64) {
	s.update(userID, func(sess *domain.Session) {
		sess.ClearContexts()
	})
}

// SwapTransient records ref as the user's transient message and returns the previous one
func (s *Store) SwapTransient(userID int64, ref domain.MessageRef) domain.MessageRef {
	var prev domain.MessageRef
	s.update(userID, func(sess *domain.Session) {
		prev, sess.LastTransient = sess.LastTransient, ref
	})
	return prev
}

// SwapResult records ref as the user's result message and returns the previous one
func (s *Store) SwapResult(userID int64, ref domain.MessageRef) domain.MessageRef {
	var prev domain.MessageRef
	s.update(userID, func(sess *domain.Session) {
		prev, sess.LastResult = sess.LastResult, ref
	})
	return prev
}

// SetMenuTap records the user's latest raw input message
func (s *Store) SetMenuTap(userID int64, ref domain.MessageRef) {
	s.update(userID, func(sess *domain.Session) {
		sess.Cleanup.LastMenuTap = ref
	})
}

// SetPrompt records the latest prompt sent to the user
func (s *Store) SetPrompt(userID int64, ref domain.MessageRef) {
	s.update(userID, func(sess *domain.Session) {
		sess.Cleanup.LastPrompt = ref
	})
}

// TakePrompt returns and forgets the latest prompt
func (s *Store) TakePrompt(userID int64) domain.MessageRef {
	var ref domain.MessageRef
	s.update(userID, func(sess *domain.Session) {
		ref, sess.Cleanup.LastPrompt = sess.Cleanup.LastPrompt, domain.MessageRef{}
	})
	return ref
}

func (s *Store) update(userID int64, fn func(*domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = domain.NewSession()
		s.sessions[userID] = sess
	}
	fn(sess)
}

func (s *Store) read(userID int64, fn func(*domain.Session)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		fn(sess)
	}
}
