// Package testrecords builds test fixtures for doctypes, creating every
// linked doctype's fixtures first and remembering what was made so later runs
// reuse it.
package testrecords

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/fixtureunit"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

// RecordSource supplies the plain record list of a doctype when its module
// declares no unit records. fixtureunit.Loader implements it.
type RecordSource interface {
	TestRecords(ctx context.Context, module, doctype string) ([]document.Record, error)
}

// TypeCount is how many fixtures one doctype produced.
type TypeCount struct {
	DocType string
	Count   int
}

type Config struct {
	Metas meta.Store
	Store document.Store
	// Units and Records may be nil.
	Units   fixtureunit.Provider
	Records RecordSource
	Log     *testlog.Log
	// Controllers, Metrics and Logger are optional.
	Controllers *document.Controllers
	Metrics     *Metrics
	Logger      *slog.Logger
}

// Generator is the entry point test harnesses use. It owns the visited set
// for its lifetime, so one Generator corresponds to one test process.
type Generator struct {
	log          *testlog.Log
	records      RecordSource
	visited      *Visited
	resolver     *Resolver
	walker       *Walker
	materializer *Materializer
	diagnostics  *Diagnostics
}

func New(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	visited := NewVisited()
	resolver := NewResolver(cfg.Metas, cfg.Units)
	return &Generator{
		log:          cfg.Log,
		records:      cfg.Records,
		visited:      visited,
		resolver:     resolver,
		walker:       NewWalker(cfg.Metas, resolver),
		materializer: NewMaterializer(cfg.Store, cfg.Log, visited, cfg.Controllers, cfg.Metrics, logger),
		diagnostics:  NewDiagnostics(cfg.Metas, logger),
	}
}

// MakeTestRecords creates fixtures for doctype and every doctype it depends
// on that this generator has not visited yet, dependencies first.
func (g *Generator) MakeTestRecords(ctx context.Context, doctype string, opts Options) ([]TypeCount, error) {
	order, err := g.walker.DiscoverOrder(ctx, doctype, g.visited)
	if err != nil {
		return nil, err
	}

	counts := make([]TypeCount, 0, len(order))
	for _, dt := range order {
		names, err := g.MakeTestRecordsForDocType(ctx, dt, opts)
		if err != nil {
			return counts, err
		}
		counts = append(counts, TypeCount{DocType: dt, Count: len(names)})
	}
	return counts, nil
}

// MakeTestRecordsForDocType creates fixtures for doctype alone. The unit's
// generator wins over its records, which win over the plain record source.
// With none of them a mandatory-fields report is logged instead.
func (g *Generator) MakeTestRecordsForDocType(ctx context.Context, doctype string, opts Options) ([]string, error) {
	module, unit, err := g.resolver.Resolve(ctx, doctype)
	if err != nil {
		return nil, err
	}

	if unit != nil {
		if gen := unit.Generator(); gen != nil {
			return collect(gen(ctx))
		}
		if records := unit.Records(); records != nil {
			return collect(g.materializer.Materialize(ctx, doctype, records, opts))
		}
	}

	records, err := g.sourceRecords(ctx, module, doctype)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, g.diagnostics.ReportMandatoryFields(ctx, doctype)
	}
	return collect(g.materializer.Materialize(ctx, doctype, records, opts))
}

// MakeTestObjects materializes records for doctype. Nil records means the
// doctype's plain record list.
func (g *Generator) MakeTestObjects(ctx context.Context, doctype string, records []document.Record, opts Options) ([]string, error) {
	if records == nil {
		module, _, err := g.resolver.Resolve(ctx, doctype)
		if err != nil {
			return nil, err
		}
		if records, err = g.sourceRecords(ctx, module, doctype); err != nil {
			return nil, err
		}
	}
	return collect(g.materializer.Materialize(ctx, doctype, records, opts))
}

// Plan returns the creation order for doctype without touching the
// generator's visited set or the store.
func (g *Generator) Plan(ctx context.Context, doctype string) ([]string, error) {
	return g.walker.DiscoverOrder(ctx, doctype, NewVisited())
}

// Dependencies lists the doctypes doctype needs created first, without
// recursing.
func (g *Generator) Dependencies(ctx context.Context, doctype string) ([]string, error) {
	return g.walker.Dependencies(ctx, doctype)
}

// ReportMandatoryFields logs what fixtures for doctype need.
func (g *Generator) ReportMandatoryFields(ctx context.Context, doctype string) error {
	return g.diagnostics.ReportMandatoryFields(ctx, doctype)
}

// Visited exposes the names created so far in this run.
func (g *Generator) Visited() *Visited {
	return g.visited
}

// ResetLog empties the site's log so every fixture is created again.
func (g *Generator) ResetLog() error {
	return g.log.Reset()
}

func (g *Generator) sourceRecords(ctx context.Context, module, doctype string) ([]document.Record, error) {
	if g.records == nil {
		return nil, nil
	}
	records, err := g.records.TestRecords(ctx, module, doctype)
	if err != nil {
		return nil, fmt.Errorf("failed to load test records of %s: %w", doctype, err)
	}
	return records, nil
}

func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var names []string
	for name, err := range seq {
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}
