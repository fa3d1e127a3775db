package testrecords

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/fixtureunit"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

func discover(t *testing.T, metas meta.Store, units fixtureunit.Provider, doctype string) []string {
	t.Helper()
	w := NewWalker(metas, NewResolver(metas, units))
	order, err := w.DiscoverOrder(context.Background(), doctype, NewVisited())
	require.NoError(t, err)
	return order
}

func TestDiscoverOrderNoLinks(t *testing.T) {
	got := discover(t, sellingMetas(), nil, "Currency")
	if diff := cmp.Diff([]string{"Currency"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderDependenciesFirst(t *testing.T) {
	got := discover(t, sellingMetas(), nil, "Sales Order")
	want := []string{"Currency", "Customer", "Item", "Sales Order"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderSharedDependencyOnce(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "Currency"},
		&meta.DocType{Name: "Customer", Fields: []meta.Field{link("currency", "Currency")}},
		&meta.DocType{Name: "SalesOrder", Fields: []meta.Field{
			link("customer", "Customer"),
			link("currency", "Currency"),
		}},
	)
	got := discover(t, metas, nil, "SalesOrder")
	if diff := cmp.Diff([]string{"Currency", "Customer", "SalesOrder"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderSuppress(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "Currency"},
		&meta.DocType{Name: "Customer"},
		&meta.DocType{Name: "SalesOrder", Fields: []meta.Field{
			link("customer", "Customer"),
			link("currency", "Currency"),
		}},
	)
	units := fixtureunit.NewRegistry()
	units.Register("SalesOrder", &fixtureunit.Definition{IgnoreDependencies: []string{"Currency"}})

	got := discover(t, metas, units, "SalesOrder")
	if diff := cmp.Diff([]string{"Customer", "SalesOrder"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderSuppressBeatsForceInclude(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "Warehouse"},
		&meta.DocType{Name: "Company"},
		&meta.DocType{Name: "Item"},
	)
	units := fixtureunit.NewRegistry()
	units.Register("Item", &fixtureunit.Definition{
		ExtraDependencies:  []string{"Warehouse", "Company"},
		IgnoreDependencies: []string{"Warehouse"},
	})

	got := discover(t, metas, units, "Item")
	if diff := cmp.Diff([]string{"Company", "Item"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderCycle(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "A", Fields: []meta.Field{link("b", "B")}},
		&meta.DocType{Name: "B", Fields: []meta.Field{link("a", "A")}},
	)
	got := discover(t, metas, nil, "A")
	if diff := cmp.Diff([]string{"B", "A"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderSelfLinkAndSelectPlaceholder(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "Account", Fields: []meta.Field{
			link("parent_account", "Account"),
			link("reference", meta.SelectPlaceholder),
		}},
	)
	got := discover(t, metas, nil, "Account")
	if diff := cmp.Diff([]string{"Account"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverOrderSkipsVisited(t *testing.T) {
	metas := sellingMetas()
	w := NewWalker(metas, NewResolver(metas, nil))
	visited := NewVisited()
	ctx := context.Background()

	first, err := w.DiscoverOrder(ctx, "Customer", visited)
	require.NoError(t, err)
	assert.Equal(t, []string{"Currency", "Customer"}, first)

	second, err := w.DiscoverOrder(ctx, "Sales Order", visited)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Sales Order"}, second)

	again, err := w.DiscoverOrder(ctx, "Sales Order", visited)
	require.NoError(t, err)
	assert.Empty(t, again)

	assert.Equal(t, []string{"Customer", "Currency", "Sales Order", "Item"}, visited.DocTypes())
}

func TestDiscoverOrderMissingDocType(t *testing.T) {
	metas := meta.NewRegistry(
		&meta.DocType{Name: "Invoice", Fields: []meta.Field{link("party", "Party")}},
	)
	w := NewWalker(metas, NewResolver(metas, nil))
	_, err := w.DiscoverOrder(context.Background(), "Invoice", NewVisited())
	require.Error(t, err)
	assert.True(t, errors.Is(err, meta.ErrDocTypeNotFound))
}

func TestDependenciesDirectOnly(t *testing.T) {
	metas := sellingMetas()
	units := fixtureunit.NewRegistry()
	units.Register("Sales Order", &fixtureunit.Definition{
		ExtraDependencies:  []string{"Warehouse"},
		IgnoreDependencies: []string{"Customer"},
	})
	w := NewWalker(metas, NewResolver(metas, units))
	ctx := context.Background()

	deps, err := w.Dependencies(ctx, "Sales Order")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"Currency", "Item", "Warehouse"}, deps); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}

	deps, err = w.Dependencies(ctx, "Currency")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestResolverCaches(t *testing.T) {
	metas := sellingMetas()
	units := fixtureunit.NewRegistry()
	r := NewResolver(metas, units)
	ctx := context.Background()

	module, unit, err := r.Resolve(ctx, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Stock", module)
	assert.Nil(t, unit)

	units.Register("Item", &fixtureunit.Definition{})
	_, unit, err = r.Resolve(ctx, "Item")
	require.NoError(t, err)
	assert.Nil(t, unit, "cached resolution is reused")

	_, _, err = r.Resolve(ctx, "Nope")
	assert.ErrorIs(t, err, meta.ErrDocTypeNotFound)
}

func TestVisited(t *testing.T) {
	v := NewVisited()
	assert.True(t, v.Register("A"))
	assert.False(t, v.Register("A"))
	assert.Equal(t, []string{}, v.Names("A"))
	assert.Nil(t, v.Names("B"))

	v.Append("B", "b1")
	v.Append("A", "a1")
	assert.Equal(t, []string{"A", "B"}, v.DocTypes())
	assert.Equal(t, []string{"a1"}, v.Names("A"))
}
