// Package entropy supplies the random draws behind boosted growth and
// particle sampling. Simulations use a seeded source so runs replay
// exactly; Crypto is available when reproducibility does not matter.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic Source. Safe for concurrent use.
type Seeded struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// NewSeeded returns a Source whose sequence depends only on seed.
func NewSeeded(seed int64) *Seeded {
	s := uint64(seed)
	return &Seeded{r: mrand.New(mrand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// IntN returns a value in [0, n).
func (s *Seeded) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 { return cryptoRandFloat() }

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return cryptoSource{}
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Chance reports true with probability p. p outside [0, 1] is clamped, so
// Chance(src, 0) never draws true and Chance(src, 1) always does.
func Chance(src Source, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return src.Float64() < p
}

// Fixed is a Source that replays the given values in a loop. Useful for
// forcing outcomes.
type Fixed struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}
