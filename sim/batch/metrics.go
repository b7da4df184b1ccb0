package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the batch runner's Prometheus collectors.
type Metrics struct {
	// runsTotal counts finished runs by result
	runsTotal *prometheus.CounterVec

	// runDuration tracks wall time per run
	runDuration prometheus.Histogram

	// agentMonths counts simulated agent-months across runs
	agentMonths prometheus.Counter

	// running is the number of runs in progress
	running prometheus.Gauge
}

// NewMetrics registers the batch collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cervical_sim_runs_total",
			Help: "Total model runs by result",
		}, []string{"result"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cervical_sim_run_duration_seconds",
			Help:    "Model run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
		agentMonths: factory.NewCounter(prometheus.CounterOpts{
			Name: "cervical_sim_agent_months_total",
			Help: "Total simulated agent-months",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cervical_sim_runs_in_progress",
			Help: "Model runs currently executing",
		}),
	}
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	result := "success"
	if r.Err != nil {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(r.Duration.Seconds())
	m.agentMonths.Add(float64(r.Summary.Agents * r.Summary.Months))
}

func (m *Metrics) start() {
	if m != nil {
		m.running.Inc()
	}
}

func (m *Metrics) done() {
	if m != nil {
		m.running.Dec()
	}
}
