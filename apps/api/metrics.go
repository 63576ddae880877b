package main

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type appMetrics struct {
	httpRequests     *prometheus.CounterVec
	reportsSubmitted *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

func newAppMetrics(reg prometheus.Registerer) *appMetrics {
	factory := promauto.With(reg)
	return &appMetrics{
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crimespot_http_requests_total",
				Help: "HTTP requests served, by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		reportsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crimespot_reports_submitted_total",
				Help: "Citizen report submissions, by result",
			},
			[]string{"result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crimespot_moderation_transitions_total",
				Help: "Moderation verify/reject attempts, by target status and outcome",
			},
			[]string{"status", "outcome"},
		),
	}
}

func (m *appMetrics) observeRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *appMetrics) observeSubmission(result string) {
	if m == nil {
		return
	}
	m.reportsSubmitted.WithLabelValues(result).Inc()
}

func (m *appMetrics) observeTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status, outcome).Inc()
}

func metricsHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
