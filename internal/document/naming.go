package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// Autoname rules understood by AssignName.
const (
	AutonameHash          = "hash"
	AutonamePrompt        = "prompt"
	AutonameAutoincrement = "autoincrement"
	AutonameNamingSeries  = "naming_series:"
	autonameFieldPrefix   = "field:"
)

const (
	defaultSeriesDigits = 5
	hashLength          = 10
	maxNameLength       = 140
)

// Counter hands out the next value of a named counter. Stores back it with
// their own persistence.
type Counter interface {
	NextSeries(ctx context.Context, key string) (int64, error)
}

// AssignName sets d.Name according to the doctype's autoname rule. Prompt
// naming leaves the name alone; Insert rejects it when still empty.
func AssignName(ctx context.Context, d *Doc, counter Counter) error {
	autoname := d.Meta.Autoname

	switch {
	case autoname == AutonamePrompt:
		return nil

	case autoname == AutonameAutoincrement:
		n, err := counter.NextSeries(ctx, d.Doctype)
		if err != nil {
			return err
		}
		d.Name = strconv.FormatInt(n, 10)

	case strings.HasPrefix(autoname, autonameFieldPrefix):
		field := strings.TrimSpace(strings.TrimPrefix(autoname, autonameFieldPrefix))
		d.Name = strings.TrimSpace(fmt.Sprint(valueOr(d.Get(field), "")))

	case autoname == AutonameNamingSeries || (autoname == "" && d.Meta.HasField(meta.NamingSeriesField) && d.NamingSeries() != ""):
		series := d.NamingSeries()
		if series == "" {
			return fmt.Errorf("%w: naming series not set for %s", ErrInvalidName, d.Doctype)
		}
		name, err := NextSeriesName(ctx, series, counter)
		if err != nil {
			return err
		}
		d.Name = name

	case strings.Contains(autoname, "#"):
		name, err := NextSeriesName(ctx, autoname, counter)
		if err != nil {
			return err
		}
		d.Name = name

	default:
		d.Name = NewHash()
	}

	return nil
}

// NewHash returns a short random hex name.
func NewHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:hashLength]
}

// ParseSeries splits a series such as "SO-.#####" into the literal
// prefix that keys the counter and the number of digits. A series without
// hashes gets the default five digits.
func ParseSeries(series string) (prefix string, digits int) {
	if !strings.Contains(series, "#") {
		series += ".#####"
	}

	var b strings.Builder
	for _, part := range strings.Split(series, ".") {
		if part != "" && strings.Trim(part, "#") == "" {
			digits = len(part)
			break
		}
		b.WriteString(part)
	}
	if digits == 0 {
		digits = defaultSeriesDigits
	}
	return b.String(), digits
}

// NextSeriesName bumps the series counter and formats the new name.
func NextSeriesName(ctx context.Context, series string, counter Counter) (string, error) {
	prefix, digits := ParseSeries(series)
	n, err := counter.NextSeries(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to advance series %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s%0*d", prefix, digits, n), nil
}

// SeriesNumber extracts the counter value a series name was built from.
func SeriesNumber(series, name string) (prefix string, n int64, ok bool) {
	prefix, _ = ParseSeries(series)
	if !strings.HasPrefix(name, prefix) {
		return prefix, 0, false
	}
	n, err := strconv.ParseInt(name[len(prefix):], 10, 64)
	if err != nil {
		return prefix, 0, false
	}
	return prefix, n, true
}

// ValidateName rejects names no store should persist.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, maxNameLength)
	case strings.ContainsAny(name, "\n\r\t"):
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
	}
	return nil
}

func valueOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
