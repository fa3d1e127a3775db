package testrecords

import (
	"context"
	"fmt"
	"slices"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// Walker orders a doctype after everything it links to.
type Walker struct {
	metas    meta.Store
	resolver *Resolver
}

func NewWalker(metas meta.Store, resolver *Resolver) *Walker {
	return &Walker{metas: metas, resolver: resolver}
}

// DiscoverOrder returns doctype and its not yet visited dependencies,
// depth-first, with doctype last. Doctypes already in visited are skipped, so
// cycles terminate and shared dependencies appear once.
func (w *Walker) DiscoverOrder(ctx context.Context, doctype string, visited *Visited) ([]string, error) {
	// Register before recursing so a cycle back to doctype finds it.
	if !visited.Register(doctype) {
		return nil, nil
	}

	deps, err := w.dependencies(ctx, doctype)
	if err != nil {
		return nil, err
	}

	var order []string
	for _, dep := range deps {
		sub, err := w.DiscoverOrder(ctx, dep, visited)
		if err != nil {
			return nil, err
		}
		order = append(order, sub...)
	}
	return append(order, doctype), nil
}

// Dependencies lists the doctypes doctype depends on, in discovery order,
// without recursing.
func (w *Walker) Dependencies(ctx context.Context, doctype string) ([]string, error) {
	return w.dependencies(ctx, doctype)
}

func (w *Walker) dependencies(ctx context.Context, doctype string) ([]string, error) {
	dt, err := w.metas.Get(ctx, doctype)
	if err != nil {
		return nil, fmt.Errorf("failed to discover dependencies of %s: %w", doctype, err)
	}

	links := dt.LinkFields()
	for _, table := range dt.TableFields() {
		child, err := w.metas.Get(ctx, table.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to discover dependencies of %s via %s: %w", doctype, table.Fieldname, err)
		}
		links = append(links, child.LinkFields()...)
	}

	var deps []string
	seen := make(map[string]bool)
	add := func(target string) {
		if target == "" || seen[target] {
			return
		}
		seen[target] = true
		deps = append(deps, target)
	}

	for _, f := range links {
		if f.Options == meta.SelectPlaceholder {
			continue
		}
		add(f.Options)
	}

	_, unit, err := w.resolver.Resolve(ctx, doctype)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return deps, nil
	}

	// Additions first, so a suppressed doctype stays out even when forced.
	for _, extra := range unit.ForceInclude() {
		add(extra)
	}
	if suppress := unit.Suppress(); len(suppress) > 0 {
		deps = slices.DeleteFunc(deps, func(d string) bool {
			return slices.Contains(suppress, d)
		})
	}
	return deps, nil
}
