package cmd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelnet-sim/modelnet/stats"
)

// serveMetrics exposes a finished run's reduced stats.Report on addr via
// stats.Exporter, blocking until the listener errors out.
func serveMetrics(addr string, report stats.Report) error {
	reg := prometheus.NewRegistry()
	exporter := stats.NewExporter(reg)
	exporter.ObserveReport(report)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
