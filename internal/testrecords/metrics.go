package testrecords

import "github.com/prometheus/client_golang/prometheus"

// Record outcomes counted by Metrics.
const (
	OutcomeCreated   = "created"
	OutcomeExisting  = "existing"
	OutcomeLogged    = "logged"
	OutcomeTolerated = "tolerated"
	OutcomeFailed    = "failed"
)

// Metrics counts fixture records by doctype and outcome. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	records *prometheus.CounterVec
}

// NewMetrics registers the fixture counters with reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flash_fixtures",
			Name:      "records_total",
			Help:      "Fixture records processed, by doctype and outcome.",
		}, []string{"doctype", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.records)
	}
	return m
}

func (m *Metrics) observe(doctype, outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(doctype, outcome).Inc()
}

// Records exposes the underlying counter vector.
func (m *Metrics) Records() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.records
}
