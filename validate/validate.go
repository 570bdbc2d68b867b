// Command validate checks game configuration files (JSON or YAML) in a
// directory. It checks:
//   - File structure and the engine's own validation rules
//   - Required messages
//   - Reachability: the shop can be entered from the meadow
//   - Spawn sanity: every weighted pickup type can spawn somewhere and
//     enemy hit boxes fit the spawn area
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/tiny-battle-run/game/config"
	"github.com/wricardo/tiny-battle-run/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors are fatal; Info holds warnings and a summary.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := engine.ParseGameConfig(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid file: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(cfg); err != nil {
		result.fail("%v", strings.TrimPrefix(err.Error(), "config validation: "))
	}

	if cfg.Messages.EnemyKilled == "" {
		result.fail("Missing required message: enemy_killed")
	}
	if cfg.Messages.EnteredShop == "" {
		result.note("⚠ messages.entered_shop is empty, entering the shop keeps the previous message")
	}

	if result.Valid {
		checkReachability(cfg, &result)
	}
	if result.Valid {
		checkSpawns(cfg, &result)
		summarize(cfg, &result)
	}

	return result
}

// checkReachability ensures the shop pickup can appear in the meadow, which
// is the only way into the shop
func checkReachability(cfg *engine.GameConfig, result *ValidationResult) {
	weight := cfg.PickupWeights[engine.PickupShop]
	switch {
	case weight <= 0:
		result.fail("Reachability failure: shop pickup has no spawn weight, the shop can never be entered")
	case cfg.PickupCaps[engine.PickupShop] <= 0:
		result.fail("Reachability failure: shop pickup cap is 0, the shop can never be entered")
	case excludedFrom(cfg, engine.PickupShop, engine.LevelMeadow):
		result.fail("Reachability failure: shop pickup is excluded from the meadow, the shop can never be entered")
	default:
		result.note("✓ Reachability: shop can be entered from the meadow")
	}
}

// checkSpawns warns about settings that make spawns impossible or pointless
func checkSpawns(cfg *engine.GameConfig, result *ValidationResult) {
	if cfg.MaxEnemySpawns == 0 {
		result.note("⚠ max_enemy_spawns is 0, no enemy will ever spawn")
	}

	span := float64(engine.SpawnMax - engine.SpawnMin)
	if cfg.EnemyHalfWidth*2 >= span || cfg.EnemyHalfHeight*2 >= span {
		result.note("⚠ enemy hit box (%gx%g) covers the whole spawn area", cfg.EnemyHalfWidth*2, cfg.EnemyHalfHeight*2)
	}

	for _, t := range engine.PickupTypes {
		if cfg.PickupWeights[t] <= 0 {
			continue
		}
		levels := 0
		for _, level := range engine.Levels {
			if !excludedFrom(cfg, t, level) {
				levels++
			}
		}
		if levels == 0 {
			result.note("⚠ pickup %s is excluded from every level and never spawns", t)
		}
	}
}

func excludedFrom(cfg *engine.GameConfig, t engine.PickupType, level engine.Level) bool {
	for _, l := range cfg.PickupLevelExclusions[t] {
		if l == level {
			return true
		}
	}
	return false
}

func summarize(cfg *engine.GameConfig, result *ValidationResult) {
	lap := cfg.MoveInterval() * time.Duration(engine.ViewportMax+1)
	result.note("✓ Name: %s", cfg.Name)
	result.note("✓ Move: every %dms (lap %s)", cfg.MoveIntervalMs, lap)
	result.note("✓ Enemies: every %dms, at most %d", cfg.EnemySpawnIntervalMs, cfg.MaxEnemySpawns)
	result.note("✓ Pickups: every %dms", cfg.PickupSpawnIntervalMs)

	types := make([]string, 0, len(cfg.PickupWeights))
	for t, w := range cfg.PickupWeights {
		types = append(types, fmt.Sprintf("%s=%g (cap %d)", t, w, cfg.PickupCaps[t]))
	}
	sort.Strings(types)
	result.note("✓ Pickup weights: %s", strings.Join(types, ", "))
}

// configFiles lists the configuration files in dir
func configFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if config.ConfigID(entry.Name()) != entry.Name() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// report prints one result per file and returns whether all were valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, info := range result.Info {
			fmt.Fprintln(w, "  "+info)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate game configuration files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = configFiles(cmd.String("dir"))
				if err != nil {
					return cli.Exit(fmt.Sprintf("Error finding config files: %v", err), 1)
				}
			}
			if len(files) == 0 {
				return cli.Exit("No configuration files found", 1)
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file))
			}

			if !report(cmd.Root().Writer, results) {
				return cli.Exit("", 1)
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
