// Package memstore is an in-memory document.Store. Savepoints snapshot the
// whole store, which is fine at fixture scale.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

type storedDoc struct {
	docstatus int
	fields    document.Record
}

type state struct {
	docs   map[string]map[string]storedDoc
	series map[string]int64
}

func (s state) clone() state {
	out := state{
		docs:   make(map[string]map[string]storedDoc, len(s.docs)),
		series: make(map[string]int64, len(s.series)),
	}
	for dt, byName := range s.docs {
		cp := make(map[string]storedDoc, len(byName))
		for name, d := range byName {
			cp[name] = storedDoc{docstatus: d.docstatus, fields: d.fields.Clone()}
		}
		out.docs[dt] = cp
	}
	for k, v := range s.series {
		out.series[k] = v
	}
	return out
}

type savepoint struct {
	name     string
	snapshot state
}

type Store struct {
	mu         sync.Mutex
	metas      meta.Store
	cur        state
	savepoints []savepoint
	writes     int
	commits    int
}

func New(metas meta.Store) *Store {
	return &Store{
		metas: metas,
		cur: state{
			docs:   make(map[string]map[string]storedDoc),
			series: make(map[string]int64),
		},
	}
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

// NextSeries implements document.Counter.
func (s *Store) NextSeries(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.series[key]++
	s.writes++
	return s.cur.series[key], nil
}

func (s *Store) Exists(_ context.Context, doctype, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cur.docs[doctype][name]
	return ok, nil
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
	if other := s.caseCollision(d.Doctype, d.Name); other != "" {
		return fmt.Errorf("%w: %s %s vs %s", document.ErrNameCollision, d.Doctype, d.Name, other)
	}

	if err := document.Validate(ctx, d, s.metas, s.Exists); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byName := s.cur.docs[d.Doctype]
	if byName == nil {
		byName = make(map[string]storedDoc)
		s.cur.docs[d.Doctype] = byName
	}
	byName[d.Name] = storedDoc{docstatus: d.DocStatus, fields: d.Fields.Clone()}
	s.writes++
	return nil
}

func (s *Store) caseCollision(doctype, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for existing := range s.cur.docs[doctype] {
		if existing != name && strings.EqualFold(existing, name) {
			return existing
		}
	}
	return ""
}

func (s *Store) Submit(_ context.Context, d *document.Doc) error {
	if !d.Meta.IsSubmittable {
		return fmt.Errorf("%w: %s", document.ErrNotSubmittable, d.Doctype)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cur.docs[d.Doctype][d.Name]
	if !ok {
		return fmt.Errorf("%w: %s %s", document.ErrDoesNotExist, d.Doctype, d.Name)
	}
	if stored.docstatus != document.DocStatusDraft {
		return fmt.Errorf("%w: %s %s has docstatus %d", document.ErrDocStatus, d.Doctype, d.Name, stored.docstatus)
	}
	stored.docstatus = document.DocStatusSubmitted
	s.cur.docs[d.Doctype][d.Name] = stored
	d.DocStatus = document.DocStatusSubmitted
	s.writes++
	return nil
}

func (s *Store) Savepoint(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savepoints = append(s.savepoints, savepoint{name: name, snapshot: s.cur.clone()})
	return nil
}

// RollbackTo restores the most recent savepoint called name. The savepoint
// itself stays in place, later ones are discarded.
func (s *Store) RollbackTo(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(name)
	if i < 0 {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	s.cur = s.savepoints[i].snapshot.clone()
	s.savepoints = s.savepoints[:i+1]
	return nil
}

// ReleaseSavepoint drops the most recent savepoint called name and every
// savepoint created after it, keeping current state.
func (s *Store) ReleaseSavepoint(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(name)
	if i < 0 {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	s.savepoints = s.savepoints[:i]
	return nil
}

func (s *Store) find(name string) int {
	for i := len(s.savepoints) - 1; i >= 0; i-- {
		if s.savepoints[i].name == name {
			return i
		}
	}
	return -1
}

func (s *Store) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savepoints = nil
	s.commits++
	return nil
}

func (s *Store) RevertSeriesIfLast(_ context.Context, series, name string) error {
	prefix, n, ok := document.SeriesNumber(series, name)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, found := s.cur.series[prefix]; found && current == n {
		s.cur.series[prefix] = n - 1
		s.writes++
	}
	return nil
}

// Get returns a copy of a stored document.
func (s *Store) Get(ctx context.Context, doctype, name string) (*document.Doc, error) {
	dt, err := s.metas.Get(ctx, doctype)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cur.docs[doctype][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", document.ErrDoesNotExist, doctype, name)
	}
	return &document.Doc{
		Doctype:   doctype,
		Name:      name,
		DocStatus: stored.docstatus,
		Fields:    stored.fields.Clone(),
		Meta:      dt,
	}, nil
}

// Names lists the stored names of doctype in sorted order.
func (s *Store) Names(doctype string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cur.docs[doctype]))
	for name := range s.cur.docs[doctype] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeriesCurrent returns the current value of a series counter.
func (s *Store) SeriesCurrent(prefix string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.series[prefix]
}

// Writes counts every mutation since the store was created.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

var _ document.Store = (*Store)(nil)
