package testrecords

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document/memstore"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/fixtureunit"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

func link(fieldname, target string) meta.Field {
	return meta.Field{Fieldname: fieldname, Fieldtype: meta.FieldLink, Options: target}
}

// sellingMetas is a small selling schema:
//
//	Sales Order -> Customer -> Currency
//	Sales Order -> Currency
//	Sales Order.items -> Sales Order Item -> Item
func sellingMetas() *meta.Registry {
	return meta.NewRegistry(
		&meta.DocType{Name: "Currency", Module: "Setup", Autoname: "field:currency_name", Fields: []meta.Field{
			{Fieldname: "currency_name", Fieldtype: meta.FieldData, Reqd: true},
		}},
		&meta.DocType{Name: "Customer", Module: "Selling", Autoname: "field:customer_name", Fields: []meta.Field{
			{Fieldname: "customer_name", Fieldtype: meta.FieldData, Reqd: true},
			link("default_currency", "Currency"),
		}},
		&meta.DocType{Name: "Item", Module: "Stock", Fields: []meta.Field{
			{Fieldname: meta.NamingSeriesField, Fieldtype: meta.FieldSelect, Options: "ITEM-.#####"},
			{Fieldname: "item_name", Fieldtype: meta.FieldData},
		}},
		&meta.DocType{Name: "Sales Order Item", Module: "Selling", IsTable: true, Fields: []meta.Field{
			link("item_code", "Item"),
			{Fieldname: "qty", Fieldtype: meta.FieldInt},
		}},
		&meta.DocType{Name: "Sales Order", Module: "Selling", IsSubmittable: true, Fields: []meta.Field{
			{Fieldname: meta.NamingSeriesField, Fieldtype: meta.FieldSelect},
			link("customer", "Customer"),
			link("currency", "Currency"),
			{Fieldname: "items", Fieldtype: meta.FieldTable, Options: "Sales Order Item"},
			{Fieldname: "order_type", Fieldtype: meta.FieldSelect, Options: "Sales\nMaintenance", Reqd: true},
		}},
	)
}

type harness struct {
	site        string
	metas       *meta.Registry
	store       *memstore.Store
	units       *fixtureunit.Registry
	controllers *document.Controllers
	logs        *bytes.Buffer
	logger      *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	metas := sellingMetas()
	logs := &bytes.Buffer{}
	return &harness{
		site:        t.TempDir(),
		metas:       metas,
		store:       memstore.New(metas),
		units:       fixtureunit.NewRegistry(),
		controllers: document.NewControllers(),
		logs:        logs,
		logger:      slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (h *harness) log() *testlog.Log {
	return testlog.Open(h.site, h.logger)
}

// generator returns a fresh generator over the harness state, as a new test
// process against the same site would see it.
func (h *harness) generator(records RecordSource) *Generator {
	return New(Config{
		Metas:       h.metas,
		Store:       h.store,
		Units:       h.units,
		Records:     records,
		Log:         h.log(),
		Controllers: h.controllers,
		Logger:      h.logger,
	})
}

func (h *harness) materializer(metrics *Metrics) (*Materializer, *Visited) {
	visited := NewVisited()
	return NewMaterializer(h.store, h.log(), visited, h.controllers, metrics, h.logger), visited
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
