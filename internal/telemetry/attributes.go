// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by grab spans.
const (
	RegionKey   = "zattoo.region"
	DaysKey     = "epg.days"
	ChannelsKey = "epg.channels"
	ListingsKey = "epg.listings"
	WindowsKey  = "epg.windows"
	BatchesKey  = "epg.batches"
	EnrichedKey = "epg.enriched"
	FailedKey   = "epg.failed"
	AbortedKey  = "epg.aborted"

	JobIDKey     = "job.id"
	JobStatusKey = "job.status"
)

// GrabAttributes describes a grab run.
func GrabAttributes(jobID, region string, days int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(RegionKey, region),
		attribute.Int(DaysKey, days),
	}
}

// EnrichmentAttributes describes the outcome of the detail stage.
func EnrichmentAttributes(batches, enriched, failed int, aborted bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(BatchesKey, batches),
		attribute.Int(EnrichedKey, enriched),
		attribute.Int(FailedKey, failed),
		attribute.Bool(AbortedKey, aborted),
	}
}
