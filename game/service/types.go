package service

import (
	"time"

	"github.com/wricardo/tiny-battle-run/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// PointerResult reports where the player ended up after a pointer report
type PointerResult struct {
	SessionID string       `json:"session_id"`
	PlayerX   float64      `json:"player_x"`
	PlayerY   float64      `json:"player_y"`
	Level     engine.Level `json:"level"`
	Currency  int          `json:"currency"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename              string `json:"filename"`
	ConfigID              string `json:"config_id"` // The identifier to use for session creation
	Name                  string `json:"name"`      // Display name
	Description           string `json:"description"`
	MoveIntervalMs        int    `json:"move_interval_ms"`
	EnemySpawnIntervalMs  int    `json:"enemy_spawn_interval_ms"`
	PickupSpawnIntervalMs int    `json:"pickup_spawn_interval_ms"`
	MaxEnemySpawns        int    `json:"max_enemy_spawns"`
}

// NewConfigInfo summarizes a configuration stored under filename
func NewConfigInfo(filename, configID string, config *engine.GameConfig) *ConfigInfo {
	return &ConfigInfo{
		Filename:              filename,
		ConfigID:              configID,
		Name:                  config.Name,
		Description:           config.Description,
		MoveIntervalMs:        config.MoveIntervalMs,
		EnemySpawnIntervalMs:  config.EnemySpawnIntervalMs,
		PickupSpawnIntervalMs: config.PickupSpawnIntervalMs,
		MaxEnemySpawns:        config.MaxEnemySpawns,
	}
}
