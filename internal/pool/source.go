package pool

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync/atomic"
)

// Source yields uniformly distributed integers in [0, n).
type Source interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand. It is the default Source.
type CryptoSource struct{}

// IntN returns a uniform value in [0, n). It panics if n <= 0, like
// math/rand does, and if the system entropy source fails.
func (CryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("pool: crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}

// SeededSource is a deterministic Source for reproducible runs.
type SeededSource struct {
	r *mrand.Rand
}

// NewSeededSource returns a PCG backed Source seeded with seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) IntN(n int) int { return s.r.IntN(n) }

// SeededSources returns a factory of SeededSources. The first call is seeded
// with seed, the next with seed+1 and so on, so every session gets its own
// reproducible sequence. Safe for concurrent use.
func SeededSources(seed uint64) func() Source {
	var n atomic.Uint64
	return func() Source {
		return NewSeededSource(seed + n.Add(1) - 1)
	}
}
