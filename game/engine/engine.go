package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Simulation steps
	Tick() (*TickResult, error)
	SpawnEnemy() (*Entity, SpawnOutcome)
	SpawnPickup() (*Entity, SpawnOutcome)

	// Input
	SetPointer(px, viewportWidth float64) error

	// Level and state management
	SwitchTo(level Level) error
	Reset() *GameState
	GetState() *GameState
	Level() Level
	Currency() int

	// Configuration
	GetConfig() *GameConfig
}

// TickResult summarizes one vertical tick
type TickResult struct {
	Events         []GameEvent `json:"events,omitempty"`
	EnemiesHit     int         `json:"enemies_hit"`
	PickupsHit     int         `json:"pickups_hit"`
	CollisionsRun  bool        `json:"collisions_run"`
	PlayerY        float64     `json:"player_y"`
	LevelAfterTick Level       `json:"level"`
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; a Scheduler serializes every call onto one goroutine.
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	pickups *PickupTable

	rng    Random
	view   View
	score  ScoreBoard
	logger zerolog.Logger
	newID  func() string
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithRandom replaces the random source
func WithRandom(r Random) Option {
	return func(e *GameEngine) { e.rng = r }
}

// WithView attaches the rendering collaborator
func WithView(v View) Option {
	return func(e *GameEngine) { e.view = v }
}

// WithScoreBoard attaches the currency display
func WithScoreBoard(s ScoreBoard) Option {
	return func(e *GameEngine) { e.score = s }
}

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *GameEngine) { e.logger = l }
}

// WithIDGenerator replaces the entity ID generator
func WithIDGenerator(gen func() string) Option {
	return func(e *GameEngine) { e.newID = gen }
}

// NewEngine creates a new game engine with the provided configuration. The
// pickup table is normalized here so configuration errors surface before any
// timer runs.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	table, err := NewPickupTable(config)
	if err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config:  config,
		pickups: table,
		rng:     NewRandom(),
		view:    NopView{},
		score:   NopView{},
		logger:  zerolog.Nop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(engine)
	}

	engine.state = InitGameStateFromConfig(config)
	engine.showInitialScene()

	return engine, nil
}

func (e *GameEngine) showInitialScene() {
	p := &e.state.Player
	p.Visual = e.view.CreateVisual(string(KindPlayer))
	e.view.SetPosition(p.Visual, p.X, p.Y)
	e.view.SetLevelVisible(LevelShop, false)
	e.view.SetLevelVisible(LevelMeadow, true)
	e.view.SetEntityLayerVisible(true)
	e.score.SetCurrency(e.state.Currency)
}

// Tick runs one vertical tick: the player advances, then, in the meadow,
// the enemy and pickup collision passes run in that order.
func (e *GameEngine) Tick() (*TickResult, error) {
	e.AdvancePlayer()
	e.state.Ticks++

	result := &TickResult{PlayerY: e.state.Player.Y}
	if e.state.Level != LevelMeadow {
		result.LevelAfterTick = e.state.Level
		return result, nil
	}
	result.CollisionsRun = true

	var errs []error
	hits, err := e.Collide(e.enemyRule(&result.Events))
	result.EnemiesHit = hits
	if err != nil {
		errs = append(errs, err)
	}

	hits, err = e.Collide(e.pickupRule(&result.Events))
	result.PickupsHit = hits
	if err != nil {
		errs = append(errs, err)
	}

	result.LevelAfterTick = e.state.Level
	return result, errors.Join(errs...)
}

// Reset releases every live visual and starts over in the meadow with zero
// currency. Reporting counters survive the reset.
func (e *GameEngine) Reset() *GameState {
	for _, c := range []*Collection{&e.state.Enemies, &e.state.Pickups} {
		for c.Len() > 0 {
			e.DestroyEntity(c, (*c)[c.Len()-1])
		}
	}

	prev := e.state
	playerVisual := prev.Player.Visual

	e.state = InitGameStateFromConfig(e.config)
	e.state.Player.Visual = playerVisual
	e.state.Ticks = prev.Ticks
	e.state.Kills = prev.Kills
	e.state.Collected = prev.Collected
	e.state.Transitions = prev.Transitions
	if e.config.Messages.Reset != "" {
		e.state.Message = e.config.Messages.Reset
	}

	e.view.SetPosition(playerVisual, e.state.Player.X, e.state.Player.Y)
	e.view.SetLevelVisible(LevelShop, false)
	e.view.SetLevelVisible(LevelMeadow, true)
	e.view.SetEntityLayerVisible(true)
	e.score.SetCurrency(0)

	e.logger.Info().Msg("game reset")
	return e.state
}

// GetState returns the current game state. Callers on other goroutines must
// use Snapshot.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Currency returns the current currency
func (e *GameEngine) Currency() int {
	return e.state.Currency
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// PickupTable returns the normalized pickup table
func (e *GameEngine) PickupTable() *PickupTable {
	return e.pickups
}
