package testrecords

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/fixtureunit"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// Resolution is what the resolver knows about a doctype.
type Resolution struct {
	Module string
	Unit   fixtureunit.Unit
}

// Resolver maps a doctype to its owning module and fixture unit. Results are
// cached for the life of the resolver; module ownership does not change
// within a run.
type Resolver struct {
	metas meta.Store
	units fixtureunit.Provider

	mu    sync.Mutex
	cache map[string]Resolution
}

// NewResolver creates a resolver. units may be nil, in which case no doctype
// has a fixture unit.
func NewResolver(metas meta.Store, units fixtureunit.Provider) *Resolver {
	return &Resolver{
		metas: metas,
		units: units,
		cache: make(map[string]Resolution),
	}
}

// Resolve returns the module owning doctype and its unit, or a nil unit when
// the module defines none.
func (r *Resolver) Resolve(ctx context.Context, doctype string) (string, fixtureunit.Unit, error) {
	res, err := r.resolve(ctx, doctype)
	if err != nil {
		return "", nil, err
	}
	return res.Module, res.Unit, nil
}

func (r *Resolver) resolve(ctx context.Context, doctype string) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.cache[doctype]; ok {
		return res, nil
	}

	dt, err := r.metas.Get(ctx, doctype)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve module of %s: %w", doctype, err)
	}

	res := Resolution{Module: dt.Module}
	if r.units != nil {
		unit, err := r.units.Lookup(ctx, dt.Module, doctype)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to load fixture unit of %s: %w", doctype, err)
		}
		res.Unit = unit
	}

	r.cache[doctype] = res
	return res, nil
}
