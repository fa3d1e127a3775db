package testrecords

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

// SavepointName marks the start of each record attempt.
const SavepointName = "creating_test_record"

// TestSeriesPrefix starts the naming series given to fixture records that
// do not pick one, so they are easy to tell apart from real data.
const TestSeriesPrefix = "_T-"

// Options tune a materialization.
type Options struct {
	// Force skips the log short-circuit and the exists check, re-attempting
	// every record.
	Force bool
	// Commit commits after each created record.
	Commit bool
	// CommitBeforeLog commits the store before a drained doctype is added
	// to the log, so the log never names records a later rollback discards.
	CommitBeforeLog bool
}

// Materializer turns raw records into stored documents.
type Materializer struct {
	store       document.Store
	log         *testlog.Log
	visited     *Visited
	controllers *document.Controllers
	metrics     *Metrics
	logger      *slog.Logger
}

func NewMaterializer(store document.Store, log *testlog.Log, visited *Visited, controllers *document.Controllers, metrics *Metrics, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:       store,
		log:         log,
		visited:     visited,
		controllers: controllers,
		metrics:     metrics,
		logger:      logger,
	}
}

// Materialize yields the names of doctype fixtures as they are created.
//
// Unless opts.Force is set, names already in the log for doctype are yielded
// first. The records are processed either way; ones that already exist are
// skipped. When the sequence is drained the names created for doctype in this
// run are added to the log. A fatal error is yielded once and ends the
// sequence.
func (m *Materializer) Materialize(ctx context.Context, doctype string, records []document.Record, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !opts.Force {
			logged, err := m.log.Has(doctype)
			if err != nil {
				yield("", err)
				return
			}
			if logged {
				names, err := m.log.Names(doctype)
				if err != nil {
					yield("", err)
					return
				}
				for _, name := range names {
					m.metrics.observe(doctype, OutcomeLogged)
					if !yield(name, nil) {
						return
					}
				}
			}
		}

		for _, rec := range records {
			name, created, err := m.makeRecord(ctx, doctype, rec, opts)
			if err != nil {
				m.metrics.observe(doctype, OutcomeFailed)
				m.logger.ErrorContext(ctx, "error in making test record",
					"doctype", doctype, "name", name, "error", err)
				yield("", err)
				return
			}
			if !created {
				continue
			}

			m.visited.Append(doctype, name)
			if !yield(name, nil) {
				return
			}
		}

		if opts.CommitBeforeLog {
			if err := m.store.Commit(ctx); err != nil {
				yield("", fmt.Errorf("failed to commit test records %s: %w", doctype, err))
				return
			}
		}
		if err := m.log.Add(doctype, m.visited.Names(doctype)); err != nil {
			yield("", err)
		}
	}
}

// makeRecord creates one record. It reports created=false for records that
// were skipped, and returns the attempted name alongside fatal errors.
func (m *Materializer) makeRecord(ctx context.Context, doctype string, rec document.Record, opts Options) (string, bool, error) {
	useSavepoint := !opts.Force
	if useSavepoint {
		if err := m.store.Savepoint(ctx, SavepointName); err != nil {
			return "", false, err
		}
	}

	rec = maps.Clone(rec)
	if rec == nil {
		rec = document.Record{}
	}
	if rec.String(document.KeyDoctype) == "" {
		rec[document.KeyDoctype] = doctype
	}

	d, err := m.store.NewDoc(ctx, rec)
	if err != nil {
		return "", false, fmt.Errorf("make test record %s: %w", doctype, err)
	}

	if d.Meta.HasField(meta.NamingSeriesField) && d.NamingSeries() == "" {
		d.SetNamingSeries(TestSeriesPrefix + d.Doctype + "-")
	}

	if name := rec.String(document.KeyName); name != "" {
		d.Name = name
	} else if err := m.store.SetNewName(ctx, d); err != nil {
		return "", false, fmt.Errorf("make test record %s: %w", d.Doctype, err)
	}

	if !opts.Force {
		exists, err := m.store.Exists(ctx, d.Doctype, d.Name)
		if err != nil {
			return d.Name, false, fmt.Errorf("make test record %s %q: %w", d.Doctype, d.Name, err)
		}
		if exists {
			if err := m.rollback(ctx); err != nil {
				return d.Name, false, err
			}
			m.metrics.observe(doctype, OutcomeExisting)
			return d.Name, false, nil
		}
	}

	docstatus := d.DocStatus
	d.DocStatus = document.DocStatusDraft
	m.controllers.Prepare(d)

	if err := m.insert(ctx, d, docstatus); err != nil {
		if !errors.Is(err, document.ErrNameError) && !d.Tolerates(err) {
			return d.Name, false, fmt.Errorf("make test record %s %q: %w", d.Doctype, d.Name, err)
		}

		m.logger.DebugContext(ctx, "skipping test record",
			"doctype", d.Doctype, "name", d.Name, "error", err)
		if err := m.revertNaming(ctx, d); err != nil {
			return d.Name, false, err
		}
		if useSavepoint {
			if err := m.store.ReleaseSavepoint(ctx, SavepointName); err != nil {
				return d.Name, false, err
			}
		}
		m.metrics.observe(doctype, OutcomeTolerated)
		return d.Name, false, nil
	}

	if useSavepoint {
		if err := m.store.ReleaseSavepoint(ctx, SavepointName); err != nil {
			return d.Name, false, err
		}
	}
	if opts.Commit {
		if err := m.store.Commit(ctx); err != nil {
			return d.Name, false, fmt.Errorf("failed to commit test record %s %q: %w", d.Doctype, d.Name, err)
		}
	}

	m.metrics.observe(doctype, OutcomeCreated)
	return d.Name, true, nil
}

func (m *Materializer) insert(ctx context.Context, d *document.Doc, docstatus int) error {
	if err := m.controllers.BeforeTestInsert(ctx, d); err != nil {
		return err
	}
	if err := m.store.Insert(ctx, d, document.InsertOptions{IgnoreIfDuplicate: true}); err != nil {
		return err
	}
	if docstatus == document.DocStatusSubmitted {
		return m.store.Submit(ctx, d)
	}
	return nil
}

// rollback undoes the current attempt and drops its savepoint so the next
// record starts from a clean chain.
func (m *Materializer) rollback(ctx context.Context) error {
	if err := m.store.RollbackTo(ctx, SavepointName); err != nil {
		return err
	}
	return m.store.ReleaseSavepoint(ctx, SavepointName)
}

func (m *Materializer) revertNaming(ctx context.Context, d *document.Doc) error {
	series := d.NamingSeries()
	if series == "" || d.Name == "" {
		return nil
	}
	if err := m.store.RevertSeriesIfLast(ctx, series, d.Name); err != nil {
		return fmt.Errorf("failed to revert naming series %s: %w", series, err)
	}
	return nil
}
