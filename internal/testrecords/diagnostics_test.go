package testrecords

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMandatoryFields(t *testing.T) {
	dt, err := sellingMetas().Get(context.Background(), "Sales Order")
	require.NoError(t, err)

	want := "Setup test records for: Sales Order\n" +
		"Autoname ''\n" +
		"Mandatory Fields\n" +
		" Sales Order order_type (Select) opts: Sales,Maintenance\n"
	assert.Equal(t, want, FormatMandatoryFields(dt))
}

func TestFormatMandatoryFieldsNoneRequired(t *testing.T) {
	dt, err := sellingMetas().Get(context.Background(), "Item")
	require.NoError(t, err)
	assert.Equal(t, "Setup test records for: Item\nAutoname ''\n", FormatMandatoryFields(dt))
}

func TestReportMandatoryFieldsChannels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := NewDiagnostics(sellingMetas(), logger)

	require.NoError(t, d.ReportMandatoryFields(context.Background(), "Currency"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"logger":"fixtures"`)
	assert.Contains(t, lines[0], `"level":"WARN"`)
	assert.Contains(t, lines[0], `------------------------------------------------------------\nSetup test records for: Currency`)
	assert.Contains(t, lines[1], `"logger":"fixtures.testing"`)
	assert.Contains(t, lines[1], `Setup test records for: Currency | Autoname 'field:currency_name' | Mandatory Fields |  Currency currency_name (Data)`)

	assert.Error(t, d.ReportMandatoryFields(context.Background(), "Unknown"))
}
