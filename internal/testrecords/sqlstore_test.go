package testrecords

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document/sqlstore"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

func sqliteGenerator(t *testing.T, site string, records RecordSource) (*Generator, *sqlstore.Store) {
	t.Helper()
	metas := sellingMetas()
	store, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Provider: "sqlite",
		URL:      "sqlite://" + filepath.Join(site, "fixtures.db"),
	}, metas)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(Config{
		Metas:   metas,
		Store:   store,
		Records: records,
		Log:     testlog.Open(site, nil),
	}), store
}

func TestLogOnlyNamesCommittedRecordsAfterFailedRun(t *testing.T) {
	ctx := context.Background()
	site := t.TempDir()
	records := staticRecords{
		"Currency": currencies("USD"),
		// customer_name is mandatory, so this doctype fails the run.
		"Customer": {{"name": "_Test Customer", "default_currency": "USD"}},
	}
	opts := Options{CommitBeforeLog: true}

	first, store := sqliteGenerator(t, site, records)
	counts, err := first.MakeTestRecords(ctx, "Customer", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrMandatory)
	assert.Equal(t, []TypeCount{{DocType: "Currency", Count: 1}}, counts)
	// The failed command closes without committing.
	require.NoError(t, store.Close())

	second, store := sqliteGenerator(t, site, records)
	names, err := second.MakeTestRecordsForDocType(ctx, "Currency", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"USD"}, names)

	stored, err := store.Names(ctx, "Currency")
	require.NoError(t, err)
	assert.Equal(t, []string{"USD"}, stored)

	logged, err := testlog.Open(site, nil).Names("Currency")
	require.NoError(t, err)
	assert.Equal(t, []string{"USD"}, logged)

	ok, err := testlog.Open(site, nil).Has("Customer")
	require.NoError(t, err)
	assert.False(t, ok)
}
