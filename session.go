// session.go: Operator sessions sharing a process without sharing machines.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"
	"sort"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Session owns one machine configuration. Every operation on a session is
// serialized, so keystrokes from concurrent callers step the machine one
// at a time.
type Session struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	cfg      MachineConfig
	lastUsed time.Time
}

// NewSession starts a session from cfg, which is validated first.
func NewSession(cfg MachineConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := timecache.CachedTime().UTC()
	return &Session{
		id:        uuid.NewString(),
		createdAt: now,
		cfg:       cfg,
		lastUsed:  now,
	}, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastUsed returns when the session last ciphered or changed.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Config returns the current configuration.
func (s *Session) Config() MachineConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Press ciphers one keystroke and advances the machine.
func (s *Session) Press(r rune) (rune, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, next, err := EncryptSymbol(r, s.cfg)
	if err != nil {
		return r, err
	}
	s.cfg = next
	s.lastUsed = timecache.CachedTime().UTC()
	return out, nil
}

// Type ciphers a whole message and keeps the final configuration, so the
// next call continues where this one stopped.
func (s *Session) Type(text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, next, err := EncryptMessage(text, s.cfg)
	if err != nil {
		return "", err
	}
	s.cfg = next
	s.lastUsed = timecache.CachedTime().UTC()
	return out, nil
}

// Update replaces the configuration with fn's result. The result is
// validated; on any error the session keeps its configuration.
//
// Example:
//
//	err := s.Update(func(cfg enigma.MachineConfig) (enigma.MachineConfig, error) {
//		return enigma.SetPlugboardPair(cfg, 'A', 'B')
//	})
func (s *Session) Update(fn func(MachineConfig) (MachineConfig, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cfg)
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	s.lastUsed = timecache.CachedTime().UTC()
	return nil
}

// Reset returns the session to its model's default configuration.
func (s *Session) Reset() error {
	return s.Update(func(cfg MachineConfig) (MachineConfig, error) {
		return cfg.Reset()
	})
}

// SessionRegistry tracks live sessions by ID. It is safe for concurrent use.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Create starts and registers a session from the model's default
// configuration.
func (r *SessionRegistry) Create(id ModelID) (*Session, error) {
	cfg, err := DefaultConfig(id)
	if err != nil {
		return nil, err
	}
	return r.CreateWithConfig(cfg)
}

// CreateWithConfig starts and registers a session from cfg.
func (r *SessionRegistry) CreateWithConfig(cfg MachineConfig) (*Session, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns a registered session.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		richErr := goerrors.New(ErrCodeSessionNotFound, fmt.Sprintf("session %s not found", id))
		return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, richErr)
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// List returns the registered session IDs, oldest first.
func (r *SessionRegistry) List() []string {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].createdAt.Equal(sessions[j].createdAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.id
	}
	return ids
}

// Len returns the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
