package battle

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Sampler is the source of every probabilistic choice the engine makes.
type Sampler interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

// RandSampler is a PCG-backed Sampler safe for use by many room loops at once.
type RandSampler struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed uint64
}

// NewSampler returns a deterministic sampler for the given seed.
func NewSampler(seed uint64) *RandSampler {
	return &RandSampler{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// NewSeededSampler draws a seed from crypto/rand.
func NewSeededSampler() (*RandSampler, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewSampler(binary.LittleEndian.Uint64(b[:])), nil
}

// Seed returns the seed the sampler was created with.
func (s *RandSampler) Seed() uint64 {
	return s.seed
}

func (s *RandSampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *RandSampler) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// pick returns a uniformly chosen element of items. items must be non-empty.
func pick[T any](s Sampler, items []T) T {
	return items[s.IntN(len(items))]
}
