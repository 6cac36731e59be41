package service

import (
	"sync"
	"time"
)

// ElectionSession tracks the polling-open flag. A session starts closed; an
// admin toggle opens it. An optional deadline closes polling on the clock
// regardless of the flag.
type ElectionSession struct {
	startTime time.Time
	deadline  time.Time
	open      bool
	mu        sync.RWMutex
}

// NewElectionSession creates a closed session. A non-positive duration means
// no deadline.
func NewElectionSession(duration time.Duration) *ElectionSession {
	now := time.Now()
	session := &ElectionSession{startTime: now}
	if duration > 0 {
		session.deadline = now.Add(duration)
	}
	return session
}

// IsOpen reports whether votes are currently accepted.
func (s *ElectionSession) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return false
	}
	return s.deadline.IsZero() || time.Now().Before(s.deadline)
}

// Toggle flips the polling flag and returns the new state. Pure state
// toggle; no chain interaction.
func (s *ElectionSession) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

// End closes polling for good.
func (s *ElectionSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}
