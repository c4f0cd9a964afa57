package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gaiaf/internal/evo"
	"gaiaf/internal/model"
)

const metricsNamespace = "gaiaf"

var _ evo.StatusRecorder = (*Metrics)(nil)

// Metrics exports experiment progress as Prometheus series. It satisfies
// evo.StatusRecorder so it can sit beside the status repository.
type Metrics struct {
	CyclesCompletedTotal   *prometheus.CounterVec
	OrganismsReplacedTotal *prometheus.CounterVec
	State                  *prometheus.GaugeVec
}

// NewMetrics registers the series on reg. Pass a fresh registry per process
// or test; registering twice on one registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesCompletedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_completed_total",
			Help:      "Mutation cycles completed per experiment",
		}, []string{"experiment"}),
		OrganismsReplacedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "organisms_replaced_total",
			Help:      "Population members replaced by children per experiment",
		}, []string{"experiment"}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "experiment_state",
			Help:      "1 for the current state of each experiment, 0 otherwise",
		}, []string{"experiment", "state"}),
	}
}

func (m *Metrics) CycleCompleted(experimentID string) {
	m.CyclesCompletedTotal.WithLabelValues(experimentID).Inc()
}

func (m *Metrics) OrganismsReplaced(experimentID string, count int) {
	m.OrganismsReplacedTotal.WithLabelValues(experimentID).Add(float64(count))
}

func (m *Metrics) SetState(experimentID string, state model.ExperimentState) {
	for _, candidate := range model.ExperimentStates {
		value := 0.0
		if candidate == state {
			value = 1
		}
		m.State.WithLabelValues(experimentID, string(candidate)).Set(value)
	}
}
