/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Feeding outcomes used as the outcome label.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSimulated = "simulated"
)

var (
	// TicksTotal counts schedule checks.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petfeeder_ticks_total",
		Help: "Number of schedule checks performed.",
	})

	// FeedingsTotal counts dispense attempts per servo and outcome.
	FeedingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petfeeder_feedings_total",
		Help: "Dispense attempts by servo and outcome.",
	}, []string{"servo", "outcome"})

	// DispenseSecondsTotal accumulates the time each servo was held open.
	DispenseSecondsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petfeeder_dispense_seconds_total",
		Help: "Total open time per servo in seconds.",
	}, []string{"servo"})

	// ScheduleOccasions is the number of occasions in the loaded schedule.
	ScheduleOccasions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "petfeeder_schedule_occasions",
		Help: "Occasions in the active schedule.",
	})

	// LastFeedTimestamp is the unix time of the last feeding event.
	LastFeedTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "petfeeder_last_feed_timestamp_seconds",
		Help: "Unix time of the most recent feeding event.",
	})

	// HTTPRequestsTotal counts requests to the telemetry listener.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petfeeder_http_requests_total",
		Help: "Requests served by the telemetry listener.",
	}, []string{"method", "route", "status"})

	// DatabaseQueryDuration observes journal query latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petfeeder_db_query_duration_seconds",
		Help:    "Journal database operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed journal operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petfeeder_db_errors_total",
		Help: "Failed journal database operations.",
	}, []string{"operation"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
