package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// ExistsFunc reports whether a document is already stored.
type ExistsFunc func(ctx context.Context, doctype, name string) (bool, error)

// Validate checks mandatory fields and link targets of d and of the rows of
// its child tables.
func Validate(ctx context.Context, d *Doc, metas meta.Store, exists ExistsFunc) error {
	if err := validateRecord(ctx, d.Meta, d.Fields, d.Name, exists); err != nil {
		return err
	}

	for _, tf := range d.Meta.TableFields() {
		rows := d.Children(tf.Fieldname)
		if len(rows) == 0 {
			continue
		}
		child, err := metas.Get(ctx, tf.Options)
		if err != nil {
			return fmt.Errorf("failed to load child doctype of %s.%s: %w", d.Doctype, tf.Fieldname, err)
		}
		for i, row := range rows {
			label := fmt.Sprintf("%s row %d", tf.Fieldname, i+1)
			if err := validateRecord(ctx, child, row, label, exists); err != nil {
				return fmt.Errorf("%s %s: %w", d.Doctype, d.Name, err)
			}
		}
	}
	return nil
}

func validateRecord(ctx context.Context, dt *meta.DocType, rec Record, label string, exists ExistsFunc) error {
	var missing []string
	for _, f := range dt.MandatoryFields() {
		if isEmpty(rec[f.Fieldname]) {
			missing = append(missing, f.Fieldname)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s: %s", ErrMandatory, dt.Name, label, strings.Join(missing, ", "))
	}

	for _, f := range dt.LinkFields() {
		if f.Options == "" || f.Options == meta.SelectPlaceholder {
			continue
		}
		target, ok := rec[f.Fieldname].(string)
		if !ok || target == "" {
			continue
		}
		found, err := exists(ctx, f.Options, target)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s %s (%s.%s)", ErrLinkValidation, f.Options, target, dt.Name, f.Fieldname)
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	}
	return false
}
