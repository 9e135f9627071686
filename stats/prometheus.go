package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter exposes a Table's running counters and the current global
// reduction as Prometheus metrics - the registry's report_stats capability
// made scrapeable. Nothing in the forward/reverse handlers depends on this;
// it is a read-only side channel updated from Table/Report snapshots.
type Exporter struct {
	sendCount  *prometheus.CounterVec
	recvCount  *prometheus.CounterVec
	sendBytes  *prometheus.CounterVec
	recvBytes  *prometheus.CounterVec
	finished   prometheus.Gauge
	avgHops    prometheus.Gauge
	avgLatency prometheus.Gauge
	maxLatency prometheus.Gauge
}

// NewExporter registers its metrics with reg and returns the Exporter.
func NewExporter(reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		sendCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelnet_send_packets_total",
			Help: "Packets sent, by category.",
		}, []string{"category"}),
		recvCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelnet_recv_packets_total",
			Help: "Packets received, by category.",
		}, []string{"category"}),
		sendBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelnet_send_bytes_total",
			Help: "Bytes sent, by category.",
		}, []string{"category"}),
		recvBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelnet_recv_bytes_total",
			Help: "Bytes received, by category.",
		}, []string{"category"}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelnet_finished_packets",
			Help: "Packets that have completed their journey, globally reduced.",
		}),
		avgHops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelnet_average_hops",
			Help: "Average hop count across finished packets.",
		}),
		avgLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelnet_average_latency_seconds",
			Help: "Average packet latency across finished packets.",
		}),
		maxLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelnet_max_latency_seconds",
			Help: "Maximum single-packet latency observed.",
		}),
	}
	reg.MustRegister(e.sendCount, e.recvCount, e.sendBytes, e.recvBytes,
		e.finished, e.avgHops, e.avgLatency, e.maxLatency)
	return e
}

// ObserveTable updates the per-category counters from t's current values.
func (e *Exporter) ObserveTable(t *Table) {
	for category, c := range t.byCategory {
		e.sendCount.WithLabelValues(category).Add(float64(c.SendCount))
		e.recvCount.WithLabelValues(category).Add(float64(c.RecvCount))
		e.sendBytes.WithLabelValues(category).Add(float64(c.SendBytes))
		e.recvBytes.WithLabelValues(category).Add(float64(c.RecvBytes))
	}
}

// ObserveReport updates the reduction gauges from the current global Report.
func (e *Exporter) ObserveReport(r Report) {
	e.finished.Set(float64(r.FinishedPackets))
	e.avgHops.Set(r.AverageHops())
	e.avgLatency.Set(r.AverageLatency())
	e.maxLatency.Set(r.MaxLatency)
}
