package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the diagnostic engine.
type EngineMetrics struct {
	turnsTotal     *prometheus.CounterVec
	expertAttempts *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	invokeLatency  prometheus.Histogram
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repairit",
			Subsystem: "diagnostic",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"stage", "reply_source"}),
		expertAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repairit",
			Subsystem: "diagnostic",
			Name:      "expert_attempts_total",
			Help:      "Total expert-response service call attempts",
		}, []string{"result"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repairit",
			Subsystem: "diagnostic",
			Name:      "fallbacks_total",
			Help:      "Total fallback replies served after invocation failure",
		}, []string{"reason"}),
		invokeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repairit",
			Subsystem: "diagnostic",
			Name:      "invoke_latency_seconds",
			Help:      "Latency of expert invocations including retries",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.expertAttempts, m.fallbacksTotal, m.invokeLatency)
	return m
}

func (m *EngineMetrics) ObserveTurn(stage, replySource string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, replySource).Inc()
}

func (m *EngineMetrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.expertAttempts.WithLabelValues(result).Inc()
}

func (m *EngineMetrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *EngineMetrics) ObserveInvokeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.invokeLatency.Observe(seconds)
}
