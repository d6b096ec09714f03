package contextwin

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("context session not found")

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Usage    Usage     `json:"usage"`
}

type session struct {
	win      *Window
	lastSeen time.Time
}

// Store keeps windows in memory, keyed by session ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session), now: time.Now}
}

// Create starts a new empty session.
func (s *Store) Create() Snapshot {
	id := uuid.NewString()
	w := NewWindow()
	s.mu.Lock()
	s.sessions[id] = &session{win: w, lastSeen: s.now()}
	s.mu.Unlock()
	return Snapshot{ID: id, Messages: []Message{}, Usage: w.Usage()}
}

// Get returns the session's current state.
func (s *Store) Get(id string) (Snapshot, error) {
	return s.update(id, func(*Window) error { return nil })
}

// Add appends a message of kind to the session.
func (s *Store) Add(id string, kind Kind) (Snapshot, error) {
	return s.update(id, func(w *Window) error {
		_, err := w.Add(kind)
		return err
	})
}

// Remove deletes one message from the session.
func (s *Store) Remove(id string, index int) (Snapshot, error) {
	return s.update(id, func(w *Window) error { return w.Remove(index) })
}

// Clear empties the session.
func (s *Store) Clear(id string) (Snapshot, error) {
	return s.update(id, func(w *Window) error {
		w.Clear()
		return nil
	})
}

// Delete drops the session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict removes sessions idle for longer than idle and returns how many went.
func (s *Store) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) update(id string, fn func(*Window) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if err := fn(sess.win); err != nil {
		return Snapshot{}, err
	}
	sess.lastSeen = s.now()
	return Snapshot{ID: id, Messages: sess.win.Messages(), Usage: sess.win.Usage()}, nil
}
