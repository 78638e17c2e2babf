package generator

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/sarchlab/typeid/idgen"
)

// Allocation pairs a declaration with the base reserved for it.
type Allocation struct {
	Decl Decl
	Base uint64
}

// Allocator reserves one base per declaration.
type Allocator struct {
	reserver idgen.Reserver
	logger   hclog.Logger
}

// NewAllocator creates an Allocator drawing bases from r.
func NewAllocator(r idgen.Reserver, logger hclog.Logger) *Allocator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Allocator{reserver: r, logger: logger}
}

// Allocate reserves a base for each declaration, in order. A generic
// declaration gets a single base shared by all of its instantiations. The
// first failed reservation aborts the whole allocation.
func (a *Allocator) Allocate(ctx context.Context, decls []Decl) ([]Allocation, error) {
	allocations := make([]Allocation, 0, len(decls))

	for _, d := range decls {
		base, err := a.reserver.Reserve(ctx)
		if err != nil {
			return nil, fmt.Errorf("reserve base for %s: %w", d.Name, err)
		}

		a.logger.Debug("allocated", "type", d.Name, "base", base, "generic", d.Generic())

		allocations = append(allocations, Allocation{Decl: d, Base: base})
	}

	return allocations, nil
}
