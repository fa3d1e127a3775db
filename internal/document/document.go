// Package document defines the document model the fixture generator drives:
// raw records, live documents, the store contract and its error taxonomy.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)

// Reserved keys of a Record that map onto Doc attributes rather than fields.
const (
	KeyName      = "name"
	KeyDoctype   = "doctype"
	KeyDocStatus = "docstatus"
)

// Record is one raw, unstructured record definition.
type Record map[string]any

// String returns the value under key when it is a non-empty string.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Clone deep copies nested maps and slices so the copy can be mutated freely.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Record:
		return Record(cloneValue(map[string]any(val)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Flags carries per-document switches set by controllers.
type Flags struct {
	// IgnoreTestErrors lists errors that should not abort fixture creation
	// for this document. Matching uses errors.Is.
	IgnoreTestErrors []error
}

// Doc is a live document instance.
type Doc struct {
	Doctype   string
	Name      string
	DocStatus int
	Fields    Record
	Meta      *meta.DocType
	Flags     Flags
}

// New deep copies rec into a document shaped by dt. The reserved keys are
// lifted out of the field map.
func New(dt *meta.DocType, rec Record) (*Doc, error) {
	fields := rec.Clone()
	if fields == nil {
		fields = Record{}
	}

	d := &Doc{
		Doctype: dt.Name,
		Name:    fields.String(KeyName),
		Fields:  fields,
		Meta:    dt,
	}

	if raw, ok := fields[KeyDocStatus]; ok {
		status, err := toInt(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid docstatus for %s: %w", dt.Name, err)
		}
		d.DocStatus = status
	}

	delete(fields, KeyName)
	delete(fields, KeyDoctype)
	delete(fields, KeyDocStatus)
	return d, nil
}

func (d *Doc) Get(field string) any {
	return d.Fields[field]
}

func (d *Doc) GetString(field string) string {
	return d.Fields.String(field)
}

func (d *Doc) Set(field string, value any) {
	d.Fields[field] = value
}

func (d *Doc) NamingSeries() string {
	return d.GetString(meta.NamingSeriesField)
}

func (d *Doc) SetNamingSeries(series string) {
	d.Set(meta.NamingSeriesField, series)
}

// Tolerates reports whether err matches one of the document's ignored test
// errors.
func (d *Doc) Tolerates(err error) bool {
	for _, target := range d.Flags.IgnoreTestErrors {
		if target != nil && errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Children returns the rows of a table field as records.
func (d *Doc) Children(field string) []Record {
	return rowsOf(d.Fields[field])
}

func rowsOf(v any) []Record {
	switch rows := v.(type) {
	case []any:
		out := make([]Record, 0, len(rows))
		for _, row := range rows {
			switch r := row.(type) {
			case map[string]any:
				out = append(out, Record(r))
			case Record:
				out = append(out, r)
			}
		}
		return out
	case []map[string]any:
		out := make([]Record, 0, len(rows))
		for _, r := range rows {
			out = append(out, Record(r))
		}
		return out
	case []Record:
		return rows
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// InsertOptions tune Store.Insert.
type InsertOptions struct {
	// IgnoreIfDuplicate turns an insert of an existing name into a no-op.
	IgnoreIfDuplicate bool
}

// Store is the document persistence contract the fixture generator relies on.
// Implementations run every call inside one open transaction.
type Store interface {
	Meta() meta.Store

	NewDoc(ctx context.Context, rec Record) (*Doc, error)
	SetNewName(ctx context.Context, d *Doc) error
	Exists(ctx context.Context, doctype, name string) (bool, error)
	Insert(ctx context.Context, d *Doc, opts InsertOptions) error
	Submit(ctx context.Context, d *Doc) error

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	Commit(ctx context.Context) error

	RevertSeriesIfLast(ctx context.Context, series, name string) error
}
