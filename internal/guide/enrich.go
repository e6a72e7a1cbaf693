// SPDX-License-Identifier: MIT

package guide

import (
	"context"
	"time"

	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/metrics"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// Enrichment policy. Fixed; the upstream throttles aggressively.
const (
	BatchSize             = 20
	RequestTimeout        = 30 * time.Second
	EmptyBatchPause       = 1 * time.Second
	BatchPause            = 500 * time.Millisecond
	MaxConsecutiveFailure = 5
)

// DetailSource fetches detail records for a batch of ids.
type DetailSource interface {
	PowerDetails(ctx context.Context, hash string, ids []string) (map[string]zapi.ProgramDetails, error)
}

// EnrichmentReport summarizes a detail run. It is diagnostic only.
type EnrichmentReport struct {
	Total            int           `json:"total"`
	Batches          int           `json:"batches"`
	Enriched         int           `json:"enriched"`
	Failed           int           `json:"failed"`
	ConnectionErrors int           `json:"connection_errors"`
	Aborted          bool          `json:"aborted"`
	Elapsed          time.Duration `json:"elapsed_ns"`
}

// SuccessRate is Enriched/Total in [0,1].
func (r EnrichmentReport) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Enriched) / float64(r.Total)
}

// Enricher fetches detail records in batches, strictly sequentially.
type Enricher struct {
	Source DetailSource
	Sleep  Sleeper
}

// NewEnricher returns an enricher with the real sleeper.
func NewEnricher(src DetailSource) *Enricher {
	return &Enricher{Source: src, Sleep: Sleep}
}

// BatchIDs returns the distinct non-empty ids of listings in first-seen
// order, partitioned into batches of size.
func BatchIDs(listings []Listing, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	seen := make(map[string]struct{}, len(listings))
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}

// Enrich builds the detail overlay for listings. Context cancellation stops
// the run between requests; the overlay gathered so far is returned.
func (e *Enricher) Enrich(ctx context.Context, s session.Session, listings []Listing) (Overlay, EnrichmentReport) {
	sleep := e.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := xglog.WithComponentFromContext(ctx, "enrich")
	started := time.Now()

	batches := BatchIDs(listings, BatchSize)
	overlay := make(Overlay)
	report := EnrichmentReport{}
	for _, b := range batches {
		report.Total += len(b)
	}

	logger.Info().
		Str(xglog.FieldEvent, "enrich.start").
		Int("programs", report.Total).
		Int("batches", len(batches)).
		Msg("fetching program details")

	consecutive := 0
	for i, ids := range batches {
		if ctx.Err() != nil {
			break
		}
		report.Batches++
		batchStart := time.Now()

		details, state := e.fetchBatch(ctx, s.GuideHash, i, ids, sleep)

		enriched := 0
		for _, id := range ids {
			if d, ok := details[id]; ok {
				overlay[id] = DetailsFrom(d)
				enriched++
			}
		}
		report.Enriched += enriched
		report.Failed += len(ids) - enriched

		if state.Phase == Exhausted {
			report.ConnectionErrors++
			consecutive++
		} else {
			consecutive = 0
		}
		metrics.RecordBatch(state.Phase.String(), enriched, len(ids))

		logger.Debug().
			Str(xglog.FieldEvent, "enrich.batch").
			Int(xglog.FieldBatch, i+1).
			Int("enriched", enriched).
			Int("size", len(ids)).
			Int(xglog.FieldAttempt, state.Attempt).
			Str("phase", state.Phase.String()).
			Int64(xglog.FieldElapsed, time.Since(batchStart).Milliseconds()).
			Msg("detail batch finished")

		if consecutive > MaxConsecutiveFailure {
			report.Aborted = true
			logger.Warn().
				Str(xglog.FieldEvent, "enrich.aborted").
				Int("connection_errors", consecutive).
				Int(xglog.FieldBatch, i+1).
				Msg("too many consecutive failed batches, stopping enrichment")
			break
		}

		if i == len(batches)-1 {
			break
		}
		pause := BatchPause
		if enriched == 0 {
			pause = EmptyBatchPause
		}
		if err := sleep(ctx, pause); err != nil {
			break
		}
	}

	report.Elapsed = time.Since(started)
	return overlay, report
}

// fetchBatch drives one batch through the retry state machine. A result
// containing none of the batch ids counts as a failed attempt.
func (e *Enricher) fetchBatch(ctx context.Context, hash string, index int, ids []string, sleep Sleeper) (map[string]zapi.ProgramDetails, BatchState) {
	logger := xglog.WithComponentFromContext(ctx, "enrich")
	state := BatchState{Phase: Pending}

	for !state.Done() {
		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		details, err := e.Source.PowerDetails(reqCtx, hash, ids)
		cancel()

		ok := err == nil && containsAny(details, ids)
		var wait time.Duration
		state, wait = state.Next(ok)
		if ok {
			return details, state
		}

		ev := logger.Debug()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str(xglog.FieldEvent, "enrich.attempt_failed").
			Int(xglog.FieldBatch, index+1).
			Int(xglog.FieldAttempt, state.Attempt).
			Dur("retry_in", wait).
			Msg("detail request returned no data")

		if state.Done() {
			return nil, state
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, BatchState{Phase: Exhausted, Attempt: state.Attempt}
		}
	}
	return nil, state
}

func containsAny(details map[string]zapi.ProgramDetails, ids []string) bool {
	for _, id := range ids {
		if _, ok := details[id]; ok {
			return true
		}
	}
	return false
}
