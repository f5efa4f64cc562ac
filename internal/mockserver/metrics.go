// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors. Each Server owns a registry so
// several servers can run in one process, as they do in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ProfilesCreated     prometheus.Counter
	TurnsTotal          *prometheus.CounterVec
	VoiceBytes          prometheus.Histogram
}

// NewMetrics registers the kare mock server collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kare_mock_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kare_mock_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		ProfilesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kare_mock_profiles_created_total",
				Help: "Total profiles created",
			},
		),
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kare_mock_turns_total",
				Help: "Total chat turns answered",
			},
			[]string{"kind"}, // "text" or "voice"
		),
		VoiceBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kare_mock_voice_upload_bytes",
				Help:    "Size of uploaded voice recordings",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
	}
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProfilesCreated,
		m.TurnsTotal,
		m.VoiceBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
