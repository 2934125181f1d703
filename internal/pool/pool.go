// internal/pool/pool.go
//
// Non-repeating random draws over the inclusive range [1, N].
// Responsibilities:
//   - Hand out every value in [1, N] exactly once per cycle.
//   - Start a fresh cycle once all N values have been drawn.
//   - Fail fast on a misconfigured range instead of spinning forever.
//
// Notes:
//   - Sampling is rejection based: pick uniformly, retry while the pick is
//     already drawn. The retry loop is bounded by maxRejections; past that
//     the pick is taken uniformly from the values still available, which
//     keeps the same distribution.
//   - A Pool is not safe for concurrent use. Each game session owns one.

package pool

import (
	"errors"
	"fmt"
)

// maxRejections bounds the resampling loop of Draw.
const maxRejections = 64

// ErrInvalidRange is returned by New when the upper bound is below 1.
var ErrInvalidRange = errors.New("pool: range upper bound must be >= 1")

// Pool draws integers from [1, n] without repeating a value until every
// value of the range has been drawn once.
type Pool struct {
	n      int              // upper bound, inclusive
	src    Source           // randomness
	order  []int            // drawn values, insertion order
	drawn  map[int]struct{} // membership for order
	cycles int              // completed cycles
}

// New constructs a Pool over [1, n]. A nil src defaults to CryptoSource.
func New(n int, src Source) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidRange, n)
	}
	if src == nil {
		src = CryptoSource{}
	}
	return &Pool{
		n:     n,
		src:   src,
		order: make([]int, 0, n),
		drawn: make(map[int]struct{}, n),
	}, nil
}

// Draw returns a value in [1, n] that has not been drawn in the current
// cycle. When the cycle is complete it is cleared first.
func (p *Pool) Draw() int {
	if len(p.order) >= p.n {
		p.Reset()
		p.cycles++
	}

	v := p.sample()
	for i := 0; p.has(v); i++ {
		if i >= maxRejections {
			rem := p.Remaining()
			v = rem[p.src.IntN(len(rem))]
			break
		}
		v = p.sample()
	}

	p.drawn[v] = struct{}{}
	p.order = append(p.order, v)
	return v
}

// Reset discards the current cycle; every value becomes available again.
func (p *Pool) Reset() {
	p.order = p.order[:0]
	clear(p.drawn)
}

// Size returns the upper bound N.
func (p *Pool) Size() int { return p.n }

// Cycles returns how many full cycles have been exhausted and cleared.
func (p *Pool) Cycles() int { return p.cycles }

// Drawn returns a copy of the values drawn in the current cycle, oldest first.
func (p *Pool) Drawn() []int {
	out := make([]int, len(p.order))
	copy(out, p.order)
	return out
}

// Remaining lists the values not yet drawn in the current cycle, ascending.
func (p *Pool) Remaining() []int {
	out := make([]int, 0, p.n-len(p.order))
	for v := 1; v <= p.n; v++ {
		if !p.has(v) {
			out = append(out, v)
		}
	}
	return out
}

func (p *Pool) sample() int { return p.src.IntN(p.n) + 1 }

func (p *Pool) has(v int) bool {
	_, ok := p.drawn[v]
	return ok
}
