package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/tiny-battle-run/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	ReportPointer(ctx context.Context, sessionID string, x, viewportWidth float64) (*PointerResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	DefaultID() string
	SaveConfig(name string, config *engine.GameConfig) error
}

// SessionView is the per-session rendering sink handed to an engine
type SessionView interface {
	engine.View
	engine.ScoreBoard
}

// Broadcaster fans a session's view commands and events out to its viewers
type Broadcaster interface {
	ViewFor(sessionID string) SessionView
	PublishEvents(sessionID string, events []engine.GameEvent)
	CloseSession(sessionID string)
}

// Session represents an active game session. Game state lives on the
// scheduler goroutine and is only reached through Do.
type Session struct {
	ID        string
	ConfigID  string
	Config    *engine.GameConfig
	Scheduler *engine.Scheduler
	CreatedAt time.Time

	// Publish receives the events of every tick and reset; may be nil
	Publish func(events []engine.GameEvent)

	mu             sync.Mutex
	lastAccessedAt time.Time
}

// NewSession creates a session around a scheduler that is already running
func NewSession(id, configID string, config *engine.GameConfig, scheduler *engine.Scheduler) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		Scheduler:      scheduler,
		CreatedAt:      now,
		lastAccessedAt: now,
	}
}

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessedAt = time.Now()
	s.mu.Unlock()
}

// SetLastAccessed overrides the last access time
func (s *Session) SetLastAccessed(t time.Time) {
	s.mu.Lock()
	s.lastAccessedAt = t
	s.mu.Unlock()
}

// LastAccessedAt returns the time of the last access
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// Do runs fn on the session's scheduler goroutine
func (s *Session) Do(ctx context.Context, fn func(e *engine.GameEngine) error) error {
	return s.Scheduler.Do(ctx, fn)
}

// Snapshot returns a copy of the current game state
func (s *Session) Snapshot(ctx context.Context) (*engine.GameState, error) {
	return s.Scheduler.Snapshot(ctx)
}

// PublishEvents forwards events to the session's viewers
func (s *Session) PublishEvents(events []engine.GameEvent) {
	if s.Publish != nil && len(events) > 0 {
		s.Publish(events)
	}
}
