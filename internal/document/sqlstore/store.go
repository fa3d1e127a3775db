// Package sqlstore persists documents in a relational database. Every
// document lives as a JSON row in one table; naming series counters live in
// a second one. All work happens inside a single open transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// validIdentifier guards savepoint names, which cannot be bound as parameters.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// insertSavepoint shields the outer transaction from a failed insert;
// postgres aborts the whole transaction on any statement error otherwise.
const insertSavepoint = "flash_insert"

type Options struct {
	Provider string
	Driver   string
	URL      string
}

type Store struct {
	db       *sql.DB
	tx       *sql.Tx
	qb       squirrel.StatementBuilderType
	metas    meta.Store
	provider string
}

// Open connects, creates the storage tables and begins the transaction.
func Open(ctx context.Context, opts Options, metas meta.Store) (*Store, error) {
	d, err := dialectFor(opts.Provider, opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.dsn(opts.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.provider, err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create storage tables: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Store{
		db:       db,
		tx:       tx,
		qb:       squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
		metas:    metas,
		provider: d.provider,
	}, nil
}

// Close rolls back uncommitted work and closes the connection.
func (s *Store) Close() error {
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.db.Close()
			return err
		}
		s.tx = nil
	}
	return s.db.Close()
}

func (s *Store) Provider() string {
	return s.provider
}

func (s *Store) Meta() meta.Store {
	return s.metas
}

func (s *Store) NewDoc(ctx context.Context, rec document.Record) (*document.Doc, error) {
	doctype := rec.String(document.KeyDoctype)
	if doctype == "" {
		return nil, fmt.Errorf("record has no doctype")
	}
	dt, err := s.metas.Get(ctx, doctype)
	if err != nil {
		return nil, err
	}
	return document.New(dt, rec)
}

func (s *Store) SetNewName(ctx context.Context, d *document.Doc) error {
	return document.AssignName(ctx, d, s)
}

func (s *Store) Exists(ctx context.Context, doctype, name string) (bool, error) {
	query, args, err := s.qb.Select("1").From(documentsTable).
		Where(squirrel.Eq{"doctype": doctype, "name": name}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = s.tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", doctype, name, err)
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, d *document.Doc, opts document.InsertOptions) error {
	if err := document.ValidateName(d.Name); err != nil {
		return err
	}

	exists, err := s.Exists(ctx, d.Doctype, d.Name)
	if err != nil {
		return err
	}
	if exists {
		if opts.IgnoreIfDuplicate {
			return nil
		}
		return fmt.Errorf("%w: %s %s", document.ErrDuplicateEntry, d.Doctype, d.Name)
	}

	other, err := s.caseCollision(ctx, d.Doctype, d.Name)
	if err != nil {
		return err
	}
	if other != "" {
		return fmt.Errorf("%w: %s %s vs %s", document.ErrNameCollision, d.Doctype, d.Name, other)
	}

	if err := document.Validate(ctx, d, s.metas, s.Exists); err != nil {
		return err
	}

	data, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", d.Doctype, d.Name, err)
	}

	query, args, err := s.qb.Insert(documentsTable).
		Columns("doctype", "name", "docstatus", "data").
		Values(d.Doctype, d.Name, d.DocStatus, string(data)).ToSql()
	if err != nil {
		return err
	}

	if err := s.Savepoint(ctx, insertSavepoint); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := s.RollbackTo(ctx, insertSavepoint); rbErr != nil {
			return fmt.Errorf("insert failed and rollback failed: %v (original: %w)", rbErr, err)
		}
		_ = s.ReleaseSavepoint(ctx, insertSavepoint)
		if isUniqueViolation(err) {
			if opts.IgnoreIfDuplicate {
				return nil
			}
			return fmt.Errorf("%w: %s %s", document.ErrDuplicateEntry, d.Doctype, d.Name)
		}
		return fmt.Errorf("failed to insert %s %s: %w", d.Doctype, d.Name, err)
	}
	return s.ReleaseSavepoint(ctx, insertSavepoint)
}

func (s *Store) caseCollision(ctx context.Context, doctype, name string) (string, error) {
	query, args, err := s.qb.Select("name").From(documentsTable).
		Where(squirrel.Eq{"doctype": doctype}).
		Where("LOWER(name) = LOWER(?)", name).
		Where(squirrel.NotEq{"name": name}).
		Limit(1).ToSql()
	if err != nil {
		return "", err
	}

	var other string
	err = s.tx.QueryRowContext(ctx, query, args...).Scan(&other)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check name collision for %s %s: %w", doctype, name, err)
	}
	return other, nil
}

func (s *Store) Submit(ctx context.Context, d *document.Doc) error {
	if !d.Meta.IsSubmittable {
		return fmt.Errorf("%w: %s", document.ErrNotSubmittable, d.Doctype)
	}

	query, args, err := s.qb.Update(documentsTable).
		Set("docstatus", document.DocStatusSubmitted).
		Where(squirrel.Eq{"doctype": d.Doctype, "name": d.Name, "docstatus": document.DocStatusDraft}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to submit %s %s: %w", d.Doctype, d.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		exists, err := s.Exists(ctx, d.Doctype, d.Name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s %s", document.ErrDoesNotExist, d.Doctype, d.Name)
		}
		return fmt.Errorf("%w: %s %s is not a draft", document.ErrDocStatus, d.Doctype, d.Name)
	}

	d.DocStatus = document.DocStatusSubmitted
	return nil
}

func (s *Store) Savepoint(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "SAVEPOINT %s", name)
}

func (s *Store) RollbackTo(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "ROLLBACK TO SAVEPOINT %s", name)
}

func (s *Store) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.execSavepoint(ctx, "RELEASE SAVEPOINT %s", name)
}

func (s *Store) execSavepoint(ctx context.Context, format, name string) error {
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("invalid savepoint name: %s", name)
	}
	if _, err := s.tx.ExecContext(ctx, fmt.Sprintf(format, name)); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

// Commit commits the open transaction and starts a new one.
func (s *Store) Commit(ctx context.Context) error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.tx = nil
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// NextSeries implements document.Counter.
func (s *Store) NextSeries(ctx context.Context, key string) (int64, error) {
	current, found, err := s.seriesCurrent(ctx, key)
	if err != nil {
		return 0, err
	}

	var q squirrel.Sqlizer
	if found {
		q = s.qb.Update(seriesTable).
			Set("current_value", squirrel.Expr("current_value + 1")).
			Where(squirrel.Eq{"name": key})
	} else {
		q = s.qb.Insert(seriesTable).Columns("name", "current_value").Values(key, 1)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to advance series %s: %w", key, err)
	}
	return current + 1, nil
}

func (s *Store) seriesCurrent(ctx context.Context, key string) (int64, bool, error) {
	query, args, err := s.qb.Select("current_value").From(seriesTable).
		Where(squirrel.Eq{"name": key}).ToSql()
	if err != nil {
		return 0, false, err
	}

	var current int64
	err = s.tx.QueryRowContext(ctx, query, args...).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read series %s: %w", key, err)
	}
	return current, true, nil
}

// SeriesCurrent returns the counter value for prefix, 0 when unset.
func (s *Store) SeriesCurrent(ctx context.Context, prefix string) (int64, error) {
	current, _, err := s.seriesCurrent(ctx, prefix)
	return current, err
}

func (s *Store) RevertSeriesIfLast(ctx context.Context, series, name string) error {
	prefix, n, ok := document.SeriesNumber(series, name)
	if !ok {
		return nil
	}

	query, args, err := s.qb.Update(seriesTable).
		Set("current_value", n-1).
		Where(squirrel.Eq{"name": prefix, "current_value": n}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to revert series %s: %w", prefix, err)
	}
	return nil
}

// Get loads a stored document.
func (s *Store) Get(ctx context.Context, doctype, name string) (*document.Doc, error) {
	dt, err := s.metas.Get(ctx, doctype)
	if err != nil {
		return nil, err
	}

	query, args, err := s.qb.Select("docstatus", "data").From(documentsTable).
		Where(squirrel.Eq{"doctype": doctype, "name": name}).ToSql()
	if err != nil {
		return nil, err
	}

	var (
		docstatus int
		data      string
	)
	err = s.tx.QueryRowContext(ctx, query, args...).Scan(&docstatus, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", document.ErrDoesNotExist, doctype, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", doctype, name, err)
	}

	fields := document.Record{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", doctype, name, err)
	}

	return &document.Doc{
		Doctype:   doctype,
		Name:      name,
		DocStatus: docstatus,
		Fields:    fields,
		Meta:      dt,
	}, nil
}

// Names lists stored names of doctype in insertion order.
func (s *Store) Names(ctx context.Context, doctype string) ([]string, error) {
	query, args, err := s.qb.Select("name").From(documentsTable).
		Where(squirrel.Eq{"doctype": doctype}).OrderBy("created_at", "name").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", doctype, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var _ document.Store = (*Store)(nil)
