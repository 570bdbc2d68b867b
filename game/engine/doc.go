// Package engine provides the core simulation of Tiny Battle Run.
//
// The player's vehicle scrolls up the screen on a fixed timer and is steered
// horizontally by a pointer. Enemies and pickups spawn at random positions in
// the meadow; running over an enemy earns one currency, running over a shop
// pickup moves the player to the shop level.
//
// Core Types:
//
// GameEngine holds one game's GameState and applies the rules. It talks to
// the outside world only through the View and ScoreBoard collaborators.
// Scheduler owns an engine and drives its three timers from a single
// goroutine; everything else reaches the engine through Scheduler.Do.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config, engine.WithView(view))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sched := engine.NewScheduler(gameEngine, engine.Hooks{}, logger)
//	go sched.Run(ctx)
//
//	_ = sched.Do(ctx, func(e *engine.GameEngine) error {
//		return e.SetPointer(640, 1280)
//	})
//
// Coordinates:
//
// Positions are normalized viewport units in [0, 100] on both axes. Spawns
// use integer positions in [15, 86). The player's Y decreases by one per
// move tick and wraps to exactly 100 when it would go negative.
package engine
