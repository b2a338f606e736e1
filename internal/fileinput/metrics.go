package fileinput

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts validation outcomes. A nil *Metrics counts nothing.
type Metrics struct {
	validations     *prometheus.CounterVec
	unreadablePaths prometheus.Counter
}

// NewMetrics creates the validation counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_file_input_validations_total",
				Help: "Total number of file input validations by result",
			},
			[]string{"result"}, // ok or the violation message key
		),
		unreadablePaths: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_file_input_unreadable_paths_total",
				Help: "Total number of validations that found an unreadable root path",
			},
		),
	}
}

func (m *Metrics) observe(violation *Violation) {
	if m == nil {
		return
	}
	result := "ok"
	if violation != nil {
		result = violation.MessageKey()
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) unreadable() {
	if m == nil {
		return
	}
	m.unreadablePaths.Inc()
}
