package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidViewport is returned when a pointer report has no usable viewport width
var ErrInvalidViewport = errors.New("viewport width must be positive")

// AdvancePlayer moves the player one unit up the screen. When the decrement
// would go below zero the player wraps to exactly ViewportMax.
func (e *GameEngine) AdvancePlayer() {
	p := &e.state.Player
	p.Y--
	if p.Y < 0 {
		p.Y = ViewportMax
	}
	e.view.SetPosition(p.Visual, p.X, p.Y)
}

// SetPointer converts a pointer pixel coordinate to viewport units and moves
// the player there immediately.
func (e *GameEngine) SetPointer(px, viewportWidth float64) error {
	if viewportWidth <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidViewport, viewportWidth)
	}
	p := &e.state.Player
	p.X = PixelsToViewport(px, viewportWidth)
	e.view.SetPosition(p.Visual, p.X, p.Y)
	return nil
}

// PixelsToViewport converts a device pixel coordinate to normalized viewport units
func PixelsToViewport(px, viewportDimension float64) float64 {
	return (px / viewportDimension) * ViewportMax
}
