package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownLevel is returned when switching to a level that does not exist
var ErrUnknownLevel = errors.New("unknown level")

// SwitchTo makes level the current level. The view is told to hide the old
// level area and show the new one; the entity layer is only visible in the
// meadow. Switching to the current level still refreshes the view.
func (e *GameEngine) SwitchTo(level Level) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	previous := e.state.Level
	e.state.Level = level
	if previous != level {
		e.state.Transitions++
		e.view.SetLevelVisible(previous, false)
	}
	e.view.SetLevelVisible(level, true)
	e.view.SetEntityLayerVisible(level == LevelMeadow)

	if level == LevelShop && e.config.Messages.EnteredShop != "" {
		e.state.Message = e.config.Messages.EnteredShop
	}

	e.logger.Info().Str("from", string(previous)).Str("to", string(level)).Msg("level changed")
	return nil
}

// Level returns the current level
func (e *GameEngine) Level() Level {
	return e.state.Level
}
