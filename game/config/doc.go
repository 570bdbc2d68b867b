// Package config provides configuration management for Tiny Battle Run.
//
// Game configurations live as JSON or YAML files in a configs directory and
// are addressed by their file name without extension (the config ID). Each
// configuration defines the timer periods, the enemy capacity, hit box
// extents, the pickup spawn table and the game messages.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("frenzy")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is "classic" when present, otherwise the first valid file in
// the directory, otherwise the built-in engine.DefaultGameConfig.
package config
