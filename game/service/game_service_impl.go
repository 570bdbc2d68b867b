package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/tiny-battle-run/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new game session and starts its timers
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	var config *engine.GameConfig
	configID := configName
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultID()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(ctx, session)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(ctx, session)
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		info, err := s.sessionInfo(ctx, sess)
		if err != nil {
			// The session was deleted while listing
			if errors.Is(err, engine.ErrSchedulerStopped) {
				continue
			}
			return nil, err
		}
		result = append(result, info)
	}

	return result, nil
}

// DeleteSession stops a session's timers and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// ReportPointer moves the player to the reported pointer position
func (s *gameServiceImpl) ReportPointer(ctx context.Context, sessionID string, x, viewportWidth float64) (*PointerResult, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &PointerResult{SessionID: session.ID}
	err = session.Do(ctx, func(e *engine.GameEngine) error {
		if err := e.SetPointer(x, viewportWidth); err != nil {
			return err
		}
		state := e.GetState()
		result.PlayerX = state.Player.X
		result.PlayerY = state.Player.Y
		result.Level = state.Level
		result.Currency = state.Currency
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reset resets a game session to its initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	var state *engine.GameState
	err = session.Do(ctx, func(e *engine.GameEngine) error {
		state = e.Reset().Snapshot()
		session.PublishEvents([]engine.GameEvent{{
			Type:     engine.EventReset,
			Message:  state.Message,
			Level:    state.Level,
			Currency: state.Currency,
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// GetGameState returns a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(ctx)
}

// ListConfigs returns all available configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

func (s *gameServiceImpl) sessionInfo(ctx context.Context, session *Session) (*SessionInfo, error) {
	state, err := session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", session.ID, err)
	}
	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt(),
		GameState:      state,
		GameConfig:     session.Config,
	}, nil
}
