// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for grab runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Listing stage
	windowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_listing_windows_total",
		Help: "Listing windows requested by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	// Detail stage
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_detail_batches_total",
		Help: "Detail batches by terminal phase",
	}, []string{"phase"}) // phase=succeeded|exhausted

	detailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_details_total",
		Help: "Program detail lookups by outcome",
	}, []string{"outcome"}) // outcome=enriched|failed

	enrichmentRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zattoo_epg_enrichment_ratio",
		Help: "Share of programs enriched with details in the last run",
	})

	// Run level
	grabRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_grab_runs_total",
		Help: "Grab runs by result",
	}, []string{"result"}) // result=success|failure

	grabFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_grab_failures_total",
		Help: "Grab failures by stage",
	}, []string{"stage"}) // stage=auth|channels|listings|build|write|deliver

	grabDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zattoo_epg_grab_duration_seconds",
		Help:    "Duration of grab runs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zattoo_epg_last_success_timestamp_seconds",
		Help: "Unix time of the last successful grab",
	})

	channelsWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zattoo_epg_xmltv_channels_written",
		Help: "Channels written to XMLTV in the last run",
	})

	programmesWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zattoo_epg_xmltv_programmes_written",
		Help: "Programmes written to XMLTV in the last run",
	})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zattoo_epg_deliveries_total",
		Help: "XMLTV deliveries to the downstream socket by outcome",
	}, []string{"outcome"})
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordWindow counts one listing window.
func RecordWindow(ok bool) { windowsTotal.WithLabelValues(outcome(ok)).Inc() }

// RecordBatch counts one detail batch and its per-program outcome.
func RecordBatch(phase string, enriched, size int) {
	batchesTotal.WithLabelValues(phase).Inc()
	detailsTotal.WithLabelValues("enriched").Add(float64(enriched))
	detailsTotal.WithLabelValues("failed").Add(float64(size - enriched))
}

// RecordEnrichmentRatio sets the enrichment share of the last run.
func RecordEnrichmentRatio(ratio float64) { enrichmentRatio.Set(ratio) }

// RecordXMLTV sets the document size of the last run.
func RecordXMLTV(channels, programmes int) {
	channelsWritten.Set(float64(channels))
	programmesWritten.Set(float64(programmes))
}

// RecordDelivery counts one socket delivery.
func RecordDelivery(ok bool) { deliveriesTotal.WithLabelValues(outcome(ok)).Inc() }

// IncGrabFailure counts a failed run at stage.
func IncGrabFailure(stage string) { grabFailuresTotal.WithLabelValues(stage).Inc() }

// RecordGrab records the end of a run.
func RecordGrab(ok bool, duration time.Duration, finished time.Time) {
	grabRunsTotal.WithLabelValues(outcome(ok)).Inc()
	grabDuration.Observe(duration.Seconds())
	if ok {
		lastSuccess.Set(float64(finished.Unix()))
	}
}
