// Package idgen defines how the generator obtains bases and provides an
// in-memory implementation for dry runs and tests.
package idgen

import (
	"context"
	"errors"
	"math"
	"sync"
)

// Reserver hands out bases. Every call returns a value that no earlier call
// against the same backing state returned.
type Reserver interface {
	Reserve(ctx context.Context) (uint64, error)
}

// ErrExhausted is returned when the 64-bit range is used up.
var ErrExhausted = errors.New("idgen: base range exhausted")

// New returns a sequential reserver whose first base is 1.
func New() Reserver {
	return &sequentialReserver{}
}

// NewFrom returns a sequential reserver whose first base is last+1.
func NewFrom(last uint64) Reserver {
	return &sequentialReserver{last: last}
}

type sequentialReserver struct {
	mu   sync.Mutex
	last uint64
}

func (r *sequentialReserver) Reserve(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last == math.MaxUint64 {
		return 0, ErrExhausted
	}

	r.last++

	return r.last, nil
}

// Func adapts a function to Reserver.
type Func func(ctx context.Context) (uint64, error)

// Reserve calls f.
func (f Func) Reserve(ctx context.Context) (uint64, error) {
	return f(ctx)
}
