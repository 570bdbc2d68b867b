package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrSchedulerStopped is returned by Do once the scheduler loop has exited
var ErrSchedulerStopped = errors.New("scheduler stopped")

// Hooks are invoked on the scheduler goroutine after each timer fires
type Hooks struct {
	OnTick  func(result *TickResult, err error)
	OnSpawn func(kind EntityKind, ent *Entity, outcome SpawnOutcome)
}

// Command states. A caller that gives up moves a pending command to
// abandoned so the loop never runs it.
const (
	commandPending int32 = iota
	commandRunning
	commandAbandoned
)

type command struct {
	ctx   context.Context
	fn    func(e *GameEngine) error
	reply chan error
	state *atomic.Int32
}

func newCommand(ctx context.Context, fn func(e *GameEngine) error) command {
	return command{ctx: ctx, fn: fn, reply: make(chan error, 1), state: new(atomic.Int32)}
}

// Scheduler owns a GameEngine and drives it from a single goroutine. The
// three timers and every inbox command run to completion one at a time, so
// the engine never sees two writers.
type Scheduler struct {
	engine *GameEngine
	hooks  Hooks
	logger zerolog.Logger

	inbox    chan command
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler wraps an engine. Run must be called to start the timers.
func NewScheduler(engine *GameEngine, hooks Hooks, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine: engine,
		hooks:  hooks,
		logger: logger,
		inbox:  make(chan command, 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run drives the move, enemy spawn and pickup spawn timers until ctx is
// cancelled or Stop is called. Timer ticks that fire while a command runs
// are coalesced by the ticker, so skipped spawns are lost rather than queued.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	config := s.engine.GetConfig()
	move := time.NewTicker(config.MoveInterval())
	defer move.Stop()
	enemies := time.NewTicker(config.EnemySpawnInterval())
	defer enemies.Stop()
	pickups := time.NewTicker(config.PickupSpawnInterval())
	defer pickups.Stop()

	s.logger.Debug().
		Dur("move", config.MoveInterval()).
		Dur("enemy_spawn", config.EnemySpawnInterval()).
		Dur("pickup_spawn", config.PickupSpawnInterval()).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("scheduler context done")
			return
		case <-s.quit:
			s.logger.Debug().Msg("scheduler stopped")
			return
		case cmd := <-s.inbox:
			s.run(cmd)
		case <-move.C:
			result, err := s.engine.Tick()
			if err != nil {
				s.logger.Error().Err(err).Msg("tick failed")
			}
			if s.hooks.OnTick != nil {
				s.hooks.OnTick(result, err)
			}
		case <-enemies.C:
			ent, outcome := s.engine.SpawnEnemy()
			if s.hooks.OnSpawn != nil {
				s.hooks.OnSpawn(KindEnemy, ent, outcome)
			}
		case <-pickups.C:
			ent, outcome := s.engine.SpawnPickup()
			if s.hooks.OnSpawn != nil {
				s.hooks.OnSpawn(KindPickup, ent, outcome)
			}
		}
	}
}

// run executes one inbox command unless its caller has already given up
func (s *Scheduler) run(cmd command) {
	if !cmd.state.CompareAndSwap(commandPending, commandRunning) {
		return
	}
	if err := cmd.ctx.Err(); err != nil {
		cmd.reply <- err
		return
	}
	cmd.reply <- cmd.fn(s.engine)
}

// Do runs fn on the scheduler goroutine and waits for it to finish. If ctx
// ends before the loop picks the command up, fn never runs. Once fn has
// started, Do waits for it to return.
func (s *Scheduler) Do(ctx context.Context, fn func(e *GameEngine) error) error {
	cmd := newCommand(ctx, fn)

	select {
	case s.inbox <- cmd:
	case <-s.done:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		if cmd.state.CompareAndSwap(commandPending, commandAbandoned) {
			return ErrSchedulerStopped
		}
		// The loop ran the command before exiting
		return <-cmd.reply
	case <-ctx.Done():
		if cmd.state.CompareAndSwap(commandPending, commandAbandoned) {
			return ctx.Err()
		}
		return <-cmd.reply
	}
}

// Snapshot returns a deep copy of the state taken on the scheduler goroutine
func (s *Scheduler) Snapshot(ctx context.Context) (*GameState, error) {
	var snap *GameState
	err := s.Do(ctx, func(e *GameEngine) error {
		snap = e.GetState().Snapshot()
		return nil
	})
	return snap, err
}

// Stop ends the loop. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}

// Done is closed once Run has returned
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
