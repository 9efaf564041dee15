package treectx

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the per-engine counters. They are only exported to a
// prometheus registry when WithMetrics is given.
type Metrics struct {
	Calcs         prometheus.Counter
	Discoveries   prometheus.Counter
	ComponentRuns prometheus.Counter
	CycleErrors   prometheus.Counter
}

func newMetrics(constLabels prometheus.Labels) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "treectx",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	return &Metrics{
		Calcs:         counter("calc_total", "Prop values computed."),
		Discoveries:   counter("discover_total", "Node discovery passes."),
		ComponentRuns: counter("component_runs_total", "Component and subscriber runs."),
		CycleErrors:   counter("cycle_errors_total", "Props abandoned as cyclical."),
	}
}

func (m *Metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Calcs, m.Discoveries, m.ComponentRuns, m.CycleErrors} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
