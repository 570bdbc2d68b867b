package engine

import (
	"math/rand"
	"time"
)

// Random is the source of randomness used for spawn positions and pickup draws
type Random interface {
	// Intn returns a value in [0, n)
	Intn(n int) int
	// Float64 returns a value in [0.0, 1.0)
	Float64() float64
}

// NewRandom returns a Random backed by math/rand seeded from the clock
func NewRandom() Random {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
