package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/tiny-battle-run/game/engine"
	"github.com/wricardo/tiny-battle-run/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager handles game session lifecycle. Every session it creates owns a
// running scheduler goroutine until it is deleted, expires or StopAll runs.
type Manager struct {
	sessions    map[string]*service.Session
	broadcaster service.Broadcaster
	logger      zerolog.Logger
	entropy     io.Reader
	mu          sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithBroadcaster routes every session's view commands and events to b
func WithBroadcaster(b service.Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

// WithLogger sets the manager logger; sessions log through children of it
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		logger:   zerolog.Nop(),
		entropy:  rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and configuration and starts
// its timers. An empty id gets a generated one.
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		generated, err := m.generateSessionID()
		if err != nil {
			return nil, err
		}
		id = generated
	}

	// Check if session already exists (case-insensitive)
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	logger := m.logger.With().Str("session", id).Logger()
	opts := []engine.Option{engine.WithLogger(logger)}
	if m.broadcaster != nil {
		view := m.broadcaster.ViewFor(id)
		opts = append(opts, engine.WithView(view), engine.WithScoreBoard(view))
	}

	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		if m.broadcaster != nil {
			m.broadcaster.CloseSession(id)
		}
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	var session *service.Session
	sched := engine.NewScheduler(eng, engine.Hooks{
		OnTick: func(result *engine.TickResult, err error) {
			if result != nil {
				session.PublishEvents(result.Events)
			}
		},
		OnSpawn: func(kind engine.EntityKind, ent *engine.Entity, outcome engine.SpawnOutcome) {
			if outcome != engine.SpawnCreated {
				logger.Trace().Str("kind", string(kind)).Str("outcome", string(outcome)).Msg("spawn skipped")
			}
		},
	}, logger)

	session = service.NewSession(id, configID, config, sched)
	if m.broadcaster != nil {
		b := m.broadcaster
		session.Publish = func(events []engine.GameEvent) { b.PublishEvents(id, events) }
	}

	m.sessions[strings.ToLower(id)] = session
	go sched.Run(context.Background())

	logger.Info().Str("config", configID).Msg("session created")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	// Try to get existing session first
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	// Create new session if not found
	if errors.Is(err, ErrSessionNotFound) {
		session, err = m.Create(id, configID, config)
		if errors.Is(err, ErrSessionAlreadyExists) {
			// Lost a race with another creator
			return m.Get(id)
		}
		return session, err
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete stops a session's timers and removes it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[strings.ToLower(id)]
	if exists {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	m.stop(session)
	m.logger.Info().Str("session", session.ID).Msg("session deleted")
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Session
	for id, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		m.stop(session)
		m.logger.Info().Str("session", session.ID).Msg("session expired")
	}

	return len(expired)
}

// StopAll stops every session's timers and forgets them
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		m.stop(session)
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) stop(session *service.Session) {
	session.Scheduler.Stop()
	<-session.Scheduler.Done()
	if m.broadcaster != nil {
		m.broadcaster.CloseSession(session.ID)
	}
}

// generateSessionID generates a random 4-character session ID not yet in use.
// Callers must hold m.mu.
func (m *Manager) generateSessionID() (string, error) {
	bytes := make([]byte, 2)
	for {
		// 2 random bytes make 4 hex characters
		if _, err := io.ReadFull(m.entropy, bytes); err != nil {
			return "", fmt.Errorf("failed to generate session id: %w", err)
		}
		id := hex.EncodeToString(bytes)
		if _, exists := m.sessions[id]; !exists {
			return id, nil
		}
	}
}
