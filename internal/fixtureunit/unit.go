// Package fixtureunit locates the optional per-doctype fixture definition:
// a generator, default records and dependency overrides.
package fixtureunit

import (
	"context"
	"iter"
	"sync"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
)

// GeneratorFunc produces fixture names itself instead of letting the
// materializer create them from records.
type GeneratorFunc func(ctx context.Context) iter.Seq2[string, error]

// Unit is a fixture definition for one doctype. Any accessor may return nil.
type Unit interface {
	Generator() GeneratorFunc
	Records() []document.Record
	ForceInclude() []string
	Suppress() []string
}

// Definition is the plain-struct Unit.
type Definition struct {
	Generate    GeneratorFunc
	TestRecords []document.Record
	// ExtraDependencies are doctypes created first even without a link field.
	ExtraDependencies []string
	// IgnoreDependencies are doctypes never created on this doctype's behalf.
	IgnoreDependencies []string
}

func (d *Definition) Generator() GeneratorFunc { return d.Generate }
func (d *Definition) Records() []document.Record { return d.TestRecords }
func (d *Definition) ForceInclude() []string { return d.ExtraDependencies }
func (d *Definition) Suppress() []string { return d.IgnoreDependencies }

// Provider finds the unit of a doctype owned by module. It returns a nil
// Unit and no error when there is none.
type Provider interface {
	Lookup(ctx context.Context, module, doctype string) (Unit, error)
}

// Registry holds units registered from Go code.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Unit
}

func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Unit)}
}

func (r *Registry) Register(doctype string, u Unit) {
	r.mu.Lock()
	r.units[doctype] = u
	r.mu.Unlock()
}

func (r *Registry) Lookup(_ context.Context, _, doctype string) (Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[doctype]
	if !ok {
		return nil, nil
	}
	return u, nil
}

// Chain asks each provider in turn and returns the first unit found.
type Chain []Provider

func (c Chain) Lookup(ctx context.Context, module, doctype string) (Unit, error) {
	for _, p := range c {
		u, err := p.Lookup(ctx, module, doctype)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}
	return nil, nil
}
