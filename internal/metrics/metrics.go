package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "fire_detection_"

// Cycle results
const (
	ResultOK      = "ok"
	ResultAborted = "aborted"
)

// Metrics bundles detection service metrics
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	ReadErrorsTotal    *prometheus.CounterVec
	SensorsReporting   prometheus.Gauge
	ClustersAlarming   prometheus.Gauge
	ClustersEscalated  prometheus.Gauge
	AlertsDroppedTotal *prometheus.CounterVec
	SinkPublishTotal   *prometheus.CounterVec
}

// New constructs metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Total detection cycles by result",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "cycle_duration_seconds",
			Help:    "Detection cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ReadErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "read_errors_total",
				Help: "Total sensor read failures by metric",
			},
			[]string{"metric"},
		),
		SensorsReporting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "sensors_reporting",
			Help: "Sensors successfully read in the last cycle",
		}),
		ClustersAlarming: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "clusters_alarming",
			Help: "Locations with at least one tripped sensor in the last cycle",
		}),
		ClustersEscalated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "clusters_escalated",
			Help: "Locations confirmed by averaged readings in the last cycle",
		}),
		AlertsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_dropped_total",
				Help: "Total alerts dropped before dispatch by reason",
			},
			[]string{"reason"},
		),
		SinkPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_publish_total",
				Help: "Total alert publish attempts by sink and result",
			},
			[]string{"sink", "result"},
		),
	}
	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.ReadErrorsTotal,
		m.SensorsReporting,
		m.ClustersAlarming,
		m.ClustersEscalated,
		m.AlertsDroppedTotal,
		m.SinkPublishTotal,
	)
	return m
}

// ObserveCycle records a finished cycle
func (m *Metrics) ObserveCycle(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

// IncReadError counts a failed sensor read
func (m *Metrics) IncReadError(metric string) {
	if m == nil {
		return
	}
	m.ReadErrorsTotal.WithLabelValues(metric).Inc()
}

// SetCycleState records per-cycle gauges
func (m *Metrics) SetCycleState(sensors, alarming, escalated int) {
	if m == nil {
		return
	}
	m.SensorsReporting.Set(float64(sensors))
	m.ClustersAlarming.Set(float64(alarming))
	m.ClustersEscalated.Set(float64(escalated))
}

// IncAlertDropped counts an alert that could not be assembled or encoded
func (m *Metrics) IncAlertDropped(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.AlertsDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveSinkPublish counts a publish attempt on a sink
func (m *Metrics) ObserveSinkPublish(sink string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.SinkPublishTotal.WithLabelValues(sink, result).Inc()
}
