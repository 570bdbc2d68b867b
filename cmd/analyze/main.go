// Command analyze runs game configurations headless over simulated time and
// prints what happened: producer outcomes per kind, kills, currency and level
// transitions. The pointer sweeps left and right across the viewport so the
// player visits every column.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/tiny-battle-run/game/config"
	"github.com/wricardo/tiny-battle-run/game/engine"
)

// SimOptions controls one headless run
type SimOptions struct {
	Duration time.Duration
	Seed     int64
	// Sweep is the period of a full left-right-left pointer sweep. Zero holds
	// the pointer in the middle of the viewport.
	Sweep time.Duration
	// ResetInShop resets the game as soon as the shop is entered
	ResetInShop bool
}

// Report is the outcome of a headless run
type Report struct {
	Config   string
	Duration time.Duration
	Seed     int64
	Ticks    int
	// PickupWeights holds the normalized spawn weight of every pickup type
	PickupWeights map[engine.PickupType]float64
	EnemySpawns   map[engine.SpawnOutcome]int
	PickupSpawns  map[engine.SpawnOutcome]int
	Kills         int
	Collected     int
	Currency      int
	MaxCurrency   int
	Transitions   int
	Resets        int
	TickErrors    int
	FirstShopAt   time.Duration
	FinalLevel    engine.Level
}

// pointerAt returns the pointer position in viewport units at simulated time t
func pointerAt(t, sweep time.Duration) float64 {
	if sweep <= 0 {
		return engine.ViewportMax / 2
	}
	phase := float64(t%sweep) / float64(sweep)
	if phase < 0.5 {
		return phase * 2 * engine.ViewportMax
	}
	return (1 - phase) * 2 * engine.ViewportMax
}

// simulate drives an engine with the three configured periods. Events that
// fall on the same instant run move first, then enemy, then pickup.
func simulate(name string, cfg *engine.GameConfig, opts SimOptions) (*Report, error) {
	eng, err := engine.NewEngine(cfg, engine.WithRandom(rand.New(rand.NewSource(opts.Seed))))
	if err != nil {
		return nil, err
	}

	report := &Report{
		Config:        name,
		Duration:      opts.Duration,
		Seed:          opts.Seed,
		EnemySpawns:   make(map[engine.SpawnOutcome]int),
		PickupSpawns:  make(map[engine.SpawnOutcome]int),
		PickupWeights: make(map[engine.PickupType]float64),
	}
	for _, t := range engine.PickupTypes {
		if w := eng.PickupTable().Weight(t); w > 0 {
			report.PickupWeights[t] = w
		}
	}

	move, enemy, pickup := cfg.MoveInterval(), cfg.EnemySpawnInterval(), cfg.PickupSpawnInterval()
	nextMove, nextEnemy, nextPickup := move, enemy, pickup

	for {
		now := nextMove
		if nextEnemy < now {
			now = nextEnemy
		}
		if nextPickup < now {
			now = nextPickup
		}
		if now > opts.Duration {
			break
		}

		if nextMove == now {
			if err := eng.SetPointer(pointerAt(now, opts.Sweep), engine.ViewportMax); err != nil {
				return nil, err
			}
			result, err := eng.Tick()
			report.Ticks++
			if err != nil {
				report.TickErrors++
			}
			if result.LevelAfterTick == engine.LevelShop {
				if report.FirstShopAt == 0 {
					report.FirstShopAt = now
				}
				if opts.ResetInShop {
					report.MaxCurrency = max(report.MaxCurrency, eng.Currency())
					eng.Reset()
					report.Resets++
				}
			}
			nextMove += move
		}
		if nextEnemy == now {
			_, outcome := eng.SpawnEnemy()
			report.EnemySpawns[outcome]++
			nextEnemy += enemy
		}
		if nextPickup == now {
			_, outcome := eng.SpawnPickup()
			report.PickupSpawns[outcome]++
			nextPickup += pickup
		}
		report.MaxCurrency = max(report.MaxCurrency, eng.Currency())
	}

	state := eng.GetState()
	report.Kills = state.Kills
	report.Collected = state.Collected
	report.Currency = state.Currency
	report.Transitions = state.Transitions
	report.FinalLevel = state.Level
	return report, nil
}

func formatOutcomes(outcomes map[engine.SpawnOutcome]int) string {
	if len(outcomes) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(outcomes))
	for outcome, n := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", outcome, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func formatWeights(weights map[engine.PickupType]float64) string {
	if len(weights) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(weights))
	for t, w := range weights {
		parts = append(parts, fmt.Sprintf("%s=%.0f%%", t, w*100))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.Config)
	fmt.Fprintf(w, "Simulated: %s (seed %d)\n", r.Duration, r.Seed)
	fmt.Fprintf(w, "Ticks: %d\n", r.Ticks)
	fmt.Fprintf(w, "Pickup weights: %s\n", formatWeights(r.PickupWeights))
	fmt.Fprintf(w, "Enemy producer: %s\n", formatOutcomes(r.EnemySpawns))
	fmt.Fprintf(w, "Pickup producer: %s\n", formatOutcomes(r.PickupSpawns))
	fmt.Fprintf(w, "Kills: %d\n", r.Kills)
	fmt.Fprintf(w, "Pickups collected: %d\n", r.Collected)
	fmt.Fprintf(w, "Currency: %d (max %d)\n", r.Currency, r.MaxCurrency)
	fmt.Fprintf(w, "Level transitions: %d, resets: %d\n", r.Transitions, r.Resets)
	if r.FirstShopAt > 0 {
		fmt.Fprintf(w, "First shop entry: %s\n", r.FirstShopAt)
	} else {
		fmt.Fprintln(w, "First shop entry: never")
	}
	fmt.Fprintf(w, "Final level: %s\n", r.FinalLevel)
	if r.TickErrors > 0 {
		fmt.Fprintf(w, "⚠ Tick errors: %d\n", r.TickErrors)
	}
}

// configPaths expands the arguments into config files. No arguments means
// every config in dir.
func configPaths(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && config.ConfigID(entry.Name()) != entry.Name() {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "simulate game configurations headless",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.DurationFlag{
				Name:  "duration",
				Value: time.Minute,
				Usage: "simulated time per config",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "random seed for spawn positions and pickup draws",
			},
			&cli.DurationFlag{
				Name:  "sweep",
				Value: 3 * time.Second,
				Usage: "period of the pointer sweep, 0 holds it centered",
			},
			&cli.BoolFlag{
				Name:  "reset-in-shop",
				Usage: "reset the game whenever the shop is entered",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths, err := configPaths(cmd.Args().Slice(), cmd.String("dir"))
			if err != nil {
				return fmt.Errorf("finding config files: %w", err)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no configuration files found")
			}

			opts := SimOptions{
				Duration:    cmd.Duration("duration"),
				Seed:        cmd.Int64("seed"),
				Sweep:       cmd.Duration("sweep"),
				ResetInShop: cmd.Bool("reset-in-shop"),
			}
			out := cmd.Root().Writer

			var failed []string
			for _, path := range paths {
				cfg, err := engine.LoadGameConfig(path)
				if err != nil {
					fmt.Fprintf(out, "\n=== %s ===\nError: %v\n", filepath.Base(path), err)
					failed = append(failed, filepath.Base(path))
					continue
				}
				report, err := simulate(filepath.Base(path), cfg, opts)
				if err != nil {
					fmt.Fprintf(out, "\n=== %s ===\nError: %v\n", filepath.Base(path), err)
					failed = append(failed, filepath.Base(path))
					continue
				}
				printReport(out, report)
			}

			if len(failed) > 0 {
				return fmt.Errorf("failed to analyze: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

