package testrecords

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/logging"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

const reportRule = "------------------------------------------------------------"

// FormatMandatoryFields describes what a fixture author has to fill in for dt.
func FormatMandatoryFields(dt *meta.DocType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Setup test records for: %s\n", dt.Name)
	fmt.Fprintf(&b, "Autoname '%s'\n", dt.Autoname)

	mandatory := dt.MandatoryFields()
	if len(mandatory) == 0 {
		return b.String()
	}

	b.WriteString("Mandatory Fields\n")
	for _, f := range mandatory {
		fmt.Fprintf(&b, " %s %s (%s)", f.Parent, f.Fieldname, f.Fieldtype)
		if opts := f.Choices(); len(opts) > 0 {
			fmt.Fprintf(&b, " opts: %s", strings.Join(opts, ","))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Diagnostics reports doctypes that have no fixture data at all.
type Diagnostics struct {
	metas   meta.Store
	human   *slog.Logger
	testing *slog.Logger
}

func NewDiagnostics(metas meta.Store, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{
		metas:   metas,
		human:   logging.Channel(logger, logging.ChannelFixtures),
		testing: logging.Channel(logger, logging.ChannelTesting),
	}
}

// ReportMandatoryFields logs the naming rule and mandatory fields of doctype
// as a warning, once as a readable block and once as a single line.
func (d *Diagnostics) ReportMandatoryFields(ctx context.Context, doctype string) error {
	dt, err := d.metas.Get(ctx, doctype)
	if err != nil {
		return fmt.Errorf("failed to report mandatory fields: %w", err)
	}

	msg := FormatMandatoryFields(dt)
	d.human.WarnContext(ctx, reportRule+"\n"+msg, "doctype", doctype)
	d.testing.WarnContext(ctx, strings.Join(strings.Split(strings.TrimSpace(msg), "\n"), " | "), "doctype", doctype)
	return nil
}
