package prizewheel

import (
	"math/rand/v2"
	"time"
)

// Random is the source of uniform samples used to pick a winner and place the
// stop inside a segment. Implementations need not be safe for concurrent use;
// the engine only calls them while holding its lock.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// NewRandom returns a PCG-backed source. The same seed reproduces the same
// sequence of spins.
func NewRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newTimeSeededRandom() Random {
	return NewRandom(uint64(time.Now().UnixNano()))
}
