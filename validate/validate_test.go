package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/tiny-battle-run/game/engine"
)

func writeConfig(t *testing.T, dir, name string, cfg interface{}) string {
	t.Helper()
	var data []byte
	switch v := cfg.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("Failed to marshal config: %v", err)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasLine(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "classic.json", engine.DefaultGameConfig())

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file classic.json, got %s", result.File)
	}
	if !hasLine(result.Info, "Reachability") {
		t.Errorf("Expected reachability note, got %v", result.Info)
	}
	if !hasLine(result.Info, "lap 1.01s") {
		t.Errorf("Expected lap time in summary, got %v", result.Info)
	}
}

func TestValidateConfig_ValidYAML(t *testing.T) {
	yamlConfig := `
name: Calm
description: Slow meadow
move_interval_ms: 20
enemy_spawn_interval_ms: 2000
pickup_spawn_interval_ms: 8000
max_enemy_spawns: 3
enemy_half_width: 3
enemy_half_height: 3
pickup_half_width: 3
pickup_half_height: 3
pickup_weights: {shop: 1}
pickup_caps: {shop: 1}
pickup_level_exclusions: {shop: [shop]}
player_start_x: 50
player_start_y: 90
messages:
  welcome: Take it easy
  enemy_killed: "Got one! Currency: %d"
  entered_shop: Shop time
  reset: Again
`
	path := writeConfig(t, t.TempDir(), "calm.yaml", yamlConfig)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid YAML config, got errors: %v", result.Errors)
	}
	if !hasLine(result.Info, "Name: Calm") {
		t.Errorf("Expected name in summary, got %v", result.Info)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *engine.GameConfig)
		expected string
	}{
		{
			name:     "Zero move interval",
			mutate:   func(cfg *engine.GameConfig) { cfg.MoveIntervalMs = 0 },
			expected: "move_interval_ms",
		},
		{
			name:     "Missing enemy killed message",
			mutate:   func(cfg *engine.GameConfig) { cfg.Messages.EnemyKilled = "" },
			expected: "Missing required message: enemy_killed",
		},
		{
			name: "Shop never spawns",
			mutate: func(cfg *engine.GameConfig) {
				cfg.PickupCaps[engine.PickupShop] = 0
			},
			expected: "Reachability failure",
		},
		{
			name: "Shop excluded from meadow",
			mutate: func(cfg *engine.GameConfig) {
				cfg.PickupLevelExclusions[engine.PickupShop] = []engine.Level{engine.LevelMeadow}
			},
			expected: "excluded from the meadow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engine.DefaultGameConfig()
			tt.mutate(cfg)
			path := writeConfig(t, t.TempDir(), "bad.json", cfg)

			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !hasLine(result.Errors, tt.expected) {
				t.Errorf("Expected error containing %q, got %v", tt.expected, result.Errors)
			}
		})
	}
}

func TestValidateConfig_Warnings(t *testing.T) {
	cfg := engine.DefaultGameConfig()
	cfg.MaxEnemySpawns = 0
	cfg.EnemyHalfWidth = 40
	cfg.Messages.EnteredShop = ""
	path := writeConfig(t, t.TempDir(), "odd.json", cfg)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected warnings only, got errors: %v", result.Errors)
	}
	for _, want := range []string{"no enemy will ever spawn", "covers the whole spawn area", "entered_shop is empty"} {
		if !hasLine(result.Info, want) {
			t.Errorf("Expected warning %q, got %v", want, result.Info)
		}
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "broken.json", `{"name": "x",`)

	result := validateConfig(path)
	if result.Valid {
		t.Error("Expected invalid result for malformed JSON")
	}
	if !hasLine(result.Errors, "Invalid file") {
		t.Errorf("Expected parse error, got %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig("/non/existent/config.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasLine(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b.yaml", "name: b")
	writeConfig(t, dir, "a.json", "{}")
	writeConfig(t, dir, "notes.txt", "skip me")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := configFiles(dir)
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.yaml" {
		t.Errorf("Expected sorted [a.json b.yaml], got %v", files)
	}

	if _, err := configFiles("/non/existent"); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	ok := report(&buf, []ValidationResult{
		{File: "good.json", Valid: true, Info: []string{"✓ Name: Good"}},
		{File: "bad.json", Valid: false, Errors: []string{"move_interval_ms must be between 1 and 60000, got 0"}},
	})

	if ok {
		t.Error("Expected report to fail with an invalid file")
	}
	out := buf.String()
	for _, want := range []string{"good.json", "✅ VALID", "❌ INVALID", "move_interval_ms", "Some configurations have errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report:\n%s", want, out)
		}
	}
}

func TestCommandValidDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "classic.json", engine.DefaultGameConfig())

	var buf bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &buf

	if err := cmd.Run(context.Background(), []string{"validate", "--dir", dir}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !strings.Contains(buf.String(), "All configurations are valid") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}
