// Package random provides a seedable, goroutine-safe random source.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is a mutex-guarded PCG generator.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a source seeded with seed. A zero seed uses the current time.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a uniform int in [0, n). It panics if n <= 0.
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
