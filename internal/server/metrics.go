package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
)

// Metrics holds the Prometheus instruments for the analysis service, on a
// private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	Analyses      *prometheus.CounterVec // kind = playlist|guide|crossref, mode = basic|advanced
	Diagnostics   *prometheus.CounterVec // source, severity
	FixesApplied  prometheus.Counter
	FetchDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playlist_doctor_analyses_total",
			Help: "Analyses performed, by document kind and repair mode.",
		}, []string{"kind", "mode"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playlist_doctor_diagnostics_total",
			Help: "Diagnostics produced, by source and severity.",
		}, []string{"source", "severity"}),
		FixesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playlist_doctor_fixes_applied_total",
			Help: "Repair operations applied to playlists.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playlist_doctor_fetch_duration_seconds",
			Help:    "Time spent fetching remote playlist and guide documents.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Analyses, m.Diagnostics, m.FixesApplied, m.FetchDuration)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDiags counts every diagnostic on the list.
func (m *Metrics) ObserveDiags(list *diag.List) {
	if list == nil {
		return
	}
	for _, d := range list.Items {
		m.Diagnostics.WithLabelValues(string(d.Source), strings.ToLower(d.Severity.String())).Inc()
	}
}
