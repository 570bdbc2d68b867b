package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Messages holds the user-facing texts of a game configuration
type Messages struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	EnemyKilled string `json:"enemy_killed" yaml:"enemy_killed"`
	EnteredShop string `json:"entered_shop" yaml:"entered_shop"`
	Reset       string `json:"reset" yaml:"reset"`
}

// GameConfig represents the game configuration loaded from JSON or YAML
type GameConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	MoveIntervalMs        int `json:"move_interval_ms" yaml:"move_interval_ms"`
	EnemySpawnIntervalMs  int `json:"enemy_spawn_interval_ms" yaml:"enemy_spawn_interval_ms"`
	PickupSpawnIntervalMs int `json:"pickup_spawn_interval_ms" yaml:"pickup_spawn_interval_ms"`
	MaxEnemySpawns        int `json:"max_enemy_spawns" yaml:"max_enemy_spawns"`

	EnemyHalfWidth   float64 `json:"enemy_half_width" yaml:"enemy_half_width"`
	EnemyHalfHeight  float64 `json:"enemy_half_height" yaml:"enemy_half_height"`
	PickupHalfWidth  float64 `json:"pickup_half_width" yaml:"pickup_half_width"`
	PickupHalfHeight float64 `json:"pickup_half_height" yaml:"pickup_half_height"`

	PickupWeights         map[PickupType]float64 `json:"pickup_weights" yaml:"pickup_weights"`
	PickupCaps            map[PickupType]int     `json:"pickup_caps" yaml:"pickup_caps"`
	PickupLevelExclusions map[PickupType][]Level `json:"pickup_level_exclusions,omitempty" yaml:"pickup_level_exclusions,omitempty"`

	PlayerStartX float64 `json:"player_start_x" yaml:"player_start_x"`
	PlayerStartY float64 `json:"player_start_y" yaml:"player_start_y"`

	Messages Messages `json:"messages" yaml:"messages"`
}

// MoveInterval returns the vertical tick period
func (c *GameConfig) MoveInterval() time.Duration {
	return time.Duration(c.MoveIntervalMs) * time.Millisecond
}

// EnemySpawnInterval returns the enemy producer period
func (c *GameConfig) EnemySpawnInterval() time.Duration {
	return time.Duration(c.EnemySpawnIntervalMs) * time.Millisecond
}

// PickupSpawnInterval returns the pickup producer period
func (c *GameConfig) PickupSpawnInterval() time.Duration {
	return time.Duration(c.PickupSpawnIntervalMs) * time.Millisecond
}

// ValidateGameConfig validates a game configuration for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate intervals
	intervals := []struct {
		field string
		value int
	}{
		{"move_interval_ms", config.MoveIntervalMs},
		{"enemy_spawn_interval_ms", config.EnemySpawnIntervalMs},
		{"pickup_spawn_interval_ms", config.PickupSpawnIntervalMs},
	}
	for _, iv := range intervals {
		if iv.value < MinIntervalMs || iv.value > MaxIntervalMs {
			return fmt.Errorf("config validation: %s must be between %d and %d, got %d",
				iv.field, MinIntervalMs, MaxIntervalMs, iv.value)
		}
	}

	// Validate enemy capacity
	if config.MaxEnemySpawns < 0 || config.MaxEnemySpawns > MaxEnemyLimit {
		return fmt.Errorf("config validation: max_enemy_spawns must be between 0 and %d, got %d",
			MaxEnemyLimit, config.MaxEnemySpawns)
	}

	// Validate hit boxes
	extents := []struct {
		field string
		value float64
	}{
		{"enemy_half_width", config.EnemyHalfWidth},
		{"enemy_half_height", config.EnemyHalfHeight},
		{"pickup_half_width", config.PickupHalfWidth},
		{"pickup_half_height", config.PickupHalfHeight},
	}
	for _, ext := range extents {
		if ext.value <= 0 || ext.value > MaxHalfExtent {
			return fmt.Errorf("config validation: %s must be greater than 0 and at most %.0f, got %g",
				ext.field, MaxHalfExtent, ext.value)
		}
	}

	// Validate player start
	if config.PlayerStartX < 0 || config.PlayerStartX > ViewportMax {
		return fmt.Errorf("config validation: player_start_x must be between 0 and %.0f, got %g", ViewportMax, config.PlayerStartX)
	}
	if config.PlayerStartY < 0 || config.PlayerStartY >= ViewportMax {
		return fmt.Errorf("config validation: player_start_y must be in [0, %.0f), got %g", ViewportMax, config.PlayerStartY)
	}

	// Validate pickup tables
	if err := validatePickupTables(config); err != nil {
		return err
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.EnemyKilled != "" && !strings.Contains(config.Messages.EnemyKilled, "%d") {
		return fmt.Errorf("config validation: messages.enemy_killed must contain %%d for currency")
	}

	return nil
}

func validatePickupTables(config *GameConfig) error {
	if len(config.PickupWeights) == 0 {
		return fmt.Errorf("config validation: pickup_weights must contain at least one pickup type")
	}

	total := 0.0
	for t, w := range config.PickupWeights {
		if !t.Valid() {
			return fmt.Errorf("config validation: pickup_weights has unknown pickup type '%s'", t)
		}
		if w < 0 {
			return fmt.Errorf("config validation: pickup_weights['%s'] must not be negative, got %g", t, w)
		}
		limit, ok := config.PickupCaps[t]
		if !ok {
			return fmt.Errorf("config validation: pickup_caps['%s'] is required for every weighted pickup type", t)
		}
		if limit < 0 || limit > MaxPickupCap {
			return fmt.Errorf("config validation: pickup_caps['%s'] must be between 0 and %d, got %d", t, MaxPickupCap, limit)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("config validation: pickup_weights must not all be zero")
	}

	for t := range config.PickupCaps {
		if !t.Valid() {
			return fmt.Errorf("config validation: pickup_caps has unknown pickup type '%s'", t)
		}
	}

	for t, levels := range config.PickupLevelExclusions {
		if !t.Valid() {
			return fmt.Errorf("config validation: pickup_level_exclusions has unknown pickup type '%s'", t)
		}
		for _, level := range levels {
			if !level.Valid() {
				return fmt.Errorf("config validation: pickup_level_exclusions['%s'] has unknown level '%s'", t, level)
			}
		}
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON or YAML file.
// The format is chosen by file extension.
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	// Validate the loaded configuration
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ParseGameConfig decodes configuration bytes. ext selects the decoder:
// ".yaml" and ".yml" use YAML, anything else JSON.
func ParseGameConfig(data []byte, ext string) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	}
	return &config, nil
}

// DefaultGameConfig returns the built-in configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:                  "Classic Meadow",
		Description:           "Default meadow run with a single shop pickup",
		MoveIntervalMs:        10,
		EnemySpawnIntervalMs:  1000,
		PickupSpawnIntervalMs: 5000,
		MaxEnemySpawns:        5,
		EnemyHalfWidth:        2.5,
		EnemyHalfHeight:       2.5,
		PickupHalfWidth:       2.5,
		PickupHalfHeight:      2.5,
		PickupWeights:         map[PickupType]float64{PickupShop: 1},
		PickupCaps:            map[PickupType]int{PickupShop: 1},
		PickupLevelExclusions: map[PickupType][]Level{PickupShop: {LevelShop}},
		PlayerStartX:          40,
		PlayerStartY:          95,
		Messages: Messages{
			Welcome:     "Steer with the mouse and run over enemies!",
			EnemyKilled: "Enemy destroyed! Currency: %d",
			EnteredShop: "Welcome to the shop!",
			Reset:       "Back to the meadow",
		},
	}
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultGameConfig()
	}

	counts := make(map[PickupType]int, len(PickupTypes))
	for _, t := range PickupTypes {
		counts[t] = 0
	}

	return &GameState{
		Level:        LevelMeadow,
		Player:       Player{X: config.PlayerStartX, Y: config.PlayerStartY},
		Enemies:      Collection{},
		Pickups:      Collection{},
		PickupCounts: counts,
		Currency:     0,
		Message:      config.Messages.Welcome,
		ConfigName:   config.Name,
	}
}
