package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

type mapCounter map[string]int64

func (m mapCounter) NextSeries(_ context.Context, key string) (int64, error) {
	m[key]++
	return m[key], nil
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"item_name": "Widget",
		"items":     []any{map[string]any{"qty": 1}},
		"nested":    map[string]any{"a": []any{"x"}},
	}

	cp := orig.Clone()
	cp["items"].([]any)[0].(map[string]any)["qty"] = 5
	cp["nested"].(map[string]any)["a"].([]any)[0] = "y"
	cp["item_name"] = "Gadget"

	assert.Equal(t, 1, orig["items"].([]any)[0].(map[string]any)["qty"])
	assert.Equal(t, "x", orig["nested"].(map[string]any)["a"].([]any)[0])
	assert.Equal(t, "Widget", orig["item_name"])
	assert.Nil(t, Record(nil).Clone())
}

func TestNewLiftsReservedKeys(t *testing.T) {
	dt := &meta.DocType{Name: "Item"}
	d, err := New(dt, Record{"name": "_Test Item", "doctype": "Item", "docstatus": 1, "item_code": "X"})
	require.NoError(t, err)

	assert.Equal(t, "Item", d.Doctype)
	assert.Equal(t, "_Test Item", d.Name)
	assert.Equal(t, DocStatusSubmitted, d.DocStatus)
	assert.Equal(t, Record{"item_code": "X"}, d.Fields)

	_, err = New(dt, Record{"docstatus": "submitted"})
	require.Error(t, err)
}

func TestParseSeries(t *testing.T) {
	tests := []struct {
		series string
		prefix string
		digits int
	}{
		{"_T-Item-", "_T-Item-", 5},
		{"SO-.####", "SO-", 4},
		{"INV-.YY.-.###", "INV-YY-", 3},
		{"ABC-#####", "ABC-#####", 5},
	}

	for _, tt := range tests {
		t.Run(tt.series, func(t *testing.T) {
			prefix, digits := ParseSeries(tt.series)
			assert.Equal(t, tt.prefix, prefix)
			assert.Equal(t, tt.digits, digits)
		})
	}
}

func TestAssignName(t *testing.T) {
	ctx := context.Background()
	counter := mapCounter{}

	series := &meta.DocType{Name: "Item", Fields: []meta.Field{{Fieldname: meta.NamingSeriesField, Fieldtype: meta.FieldSelect}}}
	d, _ := New(series, Record{"naming_series": "_T-Item-"})
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Equal(t, "_T-Item-00001", d.Name)
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Equal(t, "_T-Item-00002", d.Name)

	byField := &meta.DocType{Name: "Currency", Autoname: "field:currency_name"}
	d, _ = New(byField, Record{"currency_name": "USD"})
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Equal(t, "USD", d.Name)

	auto := &meta.DocType{Name: "Log", Autoname: AutonameAutoincrement}
	d, _ = New(auto, Record{})
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Equal(t, "1", d.Name)

	prompt := &meta.DocType{Name: "Company", Autoname: AutonamePrompt}
	d, _ = New(prompt, Record{})
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Empty(t, d.Name)

	hash := &meta.DocType{Name: "Note", Autoname: AutonameHash}
	d, _ = New(hash, Record{})
	require.NoError(t, AssignName(ctx, d, counter))
	assert.Len(t, d.Name, 10)
}

func TestSeriesNumber(t *testing.T) {
	prefix, n, ok := SeriesNumber("_T-Item-", "_T-Item-00007")
	assert.True(t, ok)
	assert.Equal(t, "_T-Item-", prefix)
	assert.Equal(t, int64(7), n)

	_, _, ok = SeriesNumber("_T-Item-", "Custom Name")
	assert.False(t, ok)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("_Test Customer"))
	for _, bad := range []string{"", "  ", "a\nb"} {
		err := ValidateName(bad)
		assert.True(t, errors.Is(err, ErrInvalidName), bad)
		assert.True(t, errors.Is(err, ErrNameError), bad)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	child := &meta.DocType{Name: "Sales Order Item", IsTable: true, Fields: []meta.Field{
		{Fieldname: "item_code", Fieldtype: meta.FieldLink, Options: "Item", Reqd: true},
	}}
	parent := &meta.DocType{Name: "Sales Order", Fields: []meta.Field{
		{Fieldname: "customer", Fieldtype: meta.FieldLink, Options: "Customer", Reqd: true},
		{Fieldname: "party", Fieldtype: meta.FieldLink, Options: meta.SelectPlaceholder},
		{Fieldname: "items", Fieldtype: meta.FieldTable, Options: "Sales Order Item"},
	}}
	metas := meta.NewRegistry(child, parent)

	stored := map[string]bool{"Customer/_Test Customer": true, "Item/_Test Item": true}
	exists := func(_ context.Context, doctype, name string) (bool, error) {
		return stored[doctype+"/"+name], nil
	}

	d, _ := New(parent, Record{
		"customer": "_Test Customer",
		"party":    "anything",
		"items":    []any{map[string]any{"item_code": "_Test Item"}},
	})
	require.NoError(t, Validate(ctx, d, metas, exists))

	d, _ = New(parent, Record{})
	assert.True(t, errors.Is(Validate(ctx, d, metas, exists), ErrMandatory))

	d, _ = New(parent, Record{"customer": "Ghost"})
	assert.True(t, errors.Is(Validate(ctx, d, metas, exists), ErrLinkValidation))

	d, _ = New(parent, Record{
		"customer": "_Test Customer",
		"items":    []any{map[string]any{"item_code": "Missing Item"}},
	})
	assert.True(t, errors.Is(Validate(ctx, d, metas, exists), ErrLinkValidation))
}

type tolerant struct{}

var errFlaky = errors.New("flaky")

func (tolerant) IgnoredTestErrors() []error { return []error{errFlaky} }

func TestControllers(t *testing.T) {
	c := NewControllers()
	c.Register("Item", tolerant{})

	d := &Doc{Doctype: "Item"}
	c.Prepare(d)
	assert.True(t, d.Tolerates(errFlaky))
	assert.True(t, d.Tolerates(errors.Join(errors.New("wrapped"), errFlaky)))
	assert.False(t, d.Tolerates(errors.New("other")))
	require.NoError(t, c.BeforeTestInsert(context.Background(), d))

	called := false
	c.Register("Customer", HookFuncs{BeforeInsert: func(_ context.Context, d *Doc) error {
		called = true
		d.Set("customer_group", "All")
		return nil
	}})
	cust := &Doc{Doctype: "Customer", Fields: Record{}}
	require.NoError(t, c.BeforeTestInsert(context.Background(), cust))
	assert.True(t, called)
	assert.Equal(t, "All", cust.GetString("customer_group"))

	var nilControllers *Controllers
	assert.Nil(t, nilControllers.Lookup("Item"))
}
