package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecalcMetrics exposes counters/histograms for queue recalculation runs.
type RecalcMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	patchesTotal prometheus.Counter
	effectsTotal *prometheus.CounterVec
}

func NewRecalcMetrics(reg prometheus.Registerer) *RecalcMetrics {
	m := &RecalcMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicq",
			Subsystem: "recalc",
			Name:      "runs_total",
			Help:      "Total queue recalculation runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicq",
			Subsystem: "recalc",
			Name:      "duration_seconds",
			Help:      "Wall time of one recalculation run",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		patchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicq",
			Subsystem: "recalc",
			Name:      "patches_total",
			Help:      "Visit patches committed",
		}),
		effectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicq",
			Subsystem: "settings",
			Name:      "effects_total",
			Help:      "Doctor status side effects applied by recalculation",
		}, []string{"effect", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.runsTotal, m.runDuration, m.patchesTotal, m.effectsTotal)
	return m
}

func (m *RecalcMetrics) ObserveRun(trigger, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(trigger, outcome).Inc()
	m.runDuration.WithLabelValues(trigger).Observe(seconds)
}

func (m *RecalcMetrics) AddPatches(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.patchesTotal.Add(float64(n))
}

func (m *RecalcMetrics) ObserveEffect(effect string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.effectsTotal.WithLabelValues(effect, status).Inc()
}
