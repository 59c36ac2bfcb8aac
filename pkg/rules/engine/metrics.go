package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the rule engine.
type Metrics struct {
	dispatches  *prometheus.CounterVec
	ruleMatches *prometheus.CounterVec
	ruleRuns    *prometheus.CounterVec
	actions     *prometheus.CounterVec
}

// NewMetrics creates engine metrics registered with the given registerer.
// Passing nil registers with the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_engine_dispatches_total",
				Help: "Total number of trigger dispatches processed",
			},
			[]string{"trigger"},
		),

		ruleMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_engine_rule_matches_total",
				Help: "Total number of rules whose conditions all passed",
			},
			[]string{"rule"},
		),

		ruleRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_engine_rule_runs_total",
				Help: "Total number of rule runs by outcome",
			},
			[]string{"rule", "status"},
		),

		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_engine_actions_total",
				Help: "Total number of executed actions by type and result",
			},
			[]string{"type", "result"},
		),
	}
}

// Nil-safe observation helpers: the engine runs without metrics when none
// are configured.

func (m *Metrics) observeDispatch(trigger TriggerType) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(string(trigger)).Inc()
}

func (m *Metrics) observeMatch(ruleID string) {
	if m == nil {
		return
	}
	m.ruleMatches.WithLabelValues(ruleID).Inc()
}

func (m *Metrics) observeRun(ruleID string, status RunStatus) {
	if m == nil {
		return
	}
	m.ruleRuns.WithLabelValues(ruleID, string(status)).Inc()
}

func (m *Metrics) observeAction(actionType ActionType, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.actions.WithLabelValues(string(actionType), result).Inc()
}
