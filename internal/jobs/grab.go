// SPDX-License-Identifier: MIT

// Package jobs runs a complete guide grab: authenticate, fetch channels and
// listings, enrich, merge, render and deliver.
package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/domevanzy/Zattoo-EPG/internal/delivery"
	"github.com/domevanzy/Zattoo-EPG/internal/epg"
	"github.com/domevanzy/Zattoo-EPG/internal/guide"
	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/metrics"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/telemetry"
)

var (
	// ErrNoChannels is returned when the account lineup is empty.
	ErrNoChannels = errors.New("no channels available")
	// ErrDelivery wraps a failed TVHeadend push.
	ErrDelivery = errors.New("tvheadend delivery failed")
)

// LowSuccessRate is the enrichment rate below which an advisory is logged.
const LowSuccessRate = 0.10

// Stage names, used for spans, timings and failure metrics.
const (
	StageAuth     = "auth"
	StageChannels = "channels"
	StageListings = "listings"
	StageEnrich   = "enrich"
	StageBuild    = "build"
	StageWrite    = "write"
	StageDeliver  = "deliver"
)

type run struct {
	ctx    context.Context
	deps   Deps
	opts   Options
	status *Status
	logger zerolog.Logger
}

// Grab performs one complete run. The returned status is never nil.
func Grab(ctx context.Context, deps Deps, opts Options) (status *Status, err error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = guide.Sleep
	}
	if deps.Details == nil {
		deps.Details = deps.Client
	}

	status = &Status{
		JobID:   uuid.NewString(),
		Region:  string(opts.Region),
		Started: now(),
	}
	ctx = xglog.ContextWithJobID(ctx, status.JobID)
	ctx, span := telemetry.StartStage(ctx, "run", telemetry.GrabAttributes(status.JobID, string(opts.Region), opts.Days)...)

	r := &run{ctx: ctx, deps: deps, opts: opts, status: status, logger: xglog.WithComponentFromContext(ctx, "jobs")}
	r.logger.Info().
		Str(xglog.FieldEvent, "grab.start").
		Str(xglog.FieldRegion, string(opts.Region)).
		Int("days", opts.Days).
		Bool("details", !opts.NoDetails).
		Msg("starting guide grab")

	err = r.execute()

	status.Finished = now()
	if err != nil {
		status.Error = err.Error()
	}
	telemetry.EndStage(span, err)
	metrics.RecordGrab(err == nil, status.Duration(), status.Finished)
	r.summary(err)
	return status, err
}

func (r *run) execute() error {
	if r.deps.Client == nil {
		return errors.New("jobs: no upstream client")
	}

	var sess session.Session
	err := r.stage(StageAuth, func(ctx context.Context) error {
		var err error
		sess, err = session.Authenticate(ctx, r.deps.Client, r.opts.Region, r.opts.Credentials,
			session.Options{DeviceUUID: r.opts.DeviceUUID})
		return err
	})
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	var channels []guide.Channel
	err = r.stage(StageChannels, func(ctx context.Context) error {
		raw, err := r.deps.Client.Channels(ctx, sess.GuideHash)
		if err != nil {
			return err
		}
		if len(raw) == 0 {
			return ErrNoChannels
		}
		channels = guide.ChannelsFrom(raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	r.status.Channels = len(channels)
	r.logger.Info().
		Str(xglog.FieldEvent, "channels.loaded").
		Int(xglog.FieldChannels, len(channels)).
		Msg("channel list loaded")

	var listings []guide.Listing
	err = r.stage(StageListings, func(ctx context.Context) error {
		f := &guide.ListingFetcher{
			Source: r.deps.Client,
			Now:    r.deps.Now,
			Sleep:  r.deps.Sleep,
			Pause:  guide.DefaultWindowPause,
		}
		res, err := f.Fetch(ctx, sess, r.opts.Days)
		if err != nil {
			return err
		}
		listings = res.Listings
		r.logger.Info().
			Str(xglog.FieldEvent, "listings.fetched").
			Int(xglog.FieldListings, len(listings)).
			Int("windows", res.Windows).
			Ints("failed_windows", res.FailedWindows).
			Msg("listings fetched")
		return nil
	})
	if err != nil {
		return fmt.Errorf("listings: %w", err)
	}
	if r.opts.Dedupe {
		before := len(listings)
		listings = guide.Dedupe(listings)
		r.logger.Debug().
			Str(xglog.FieldEvent, "listings.deduped").
			Int("removed", before-len(listings)).
			Msg("duplicate slots removed")
	}
	r.status.Listings = len(listings)

	if !r.opts.NoDetails {
		_ = r.stage(StageEnrich, func(ctx context.Context) error {
			e := &guide.Enricher{Source: r.deps.Details, Sleep: r.deps.Sleep}
			overlay, report := e.Enrich(ctx, sess, listings)
			r.status.Enrichment = report
			trace.SpanFromContext(ctx).SetAttributes(
				telemetry.EnrichmentAttributes(report.Batches, report.Enriched, report.Failed, report.Aborted)...)
			metrics.RecordEnrichmentRatio(report.SuccessRate())
			listings = guide.Merge(listings, overlay)
			return ctx.Err()
		})
		if err := r.ctx.Err(); err != nil {
			return err
		}
	}

	var tv *epg.TV
	_ = r.stage(StageBuild, func(context.Context) error {
		tv = epg.Build(channels, listings, r.opts.Build)
		return nil
	})
	r.status.Programmes = len(tv.Programmes)
	metrics.RecordXMLTV(len(tv.Channels), len(tv.Programmes))

	doc, err := epg.Marshal(tv)
	if err != nil {
		return fmt.Errorf("render xmltv: %w", err)
	}
	r.status.Document = doc

	if !r.opts.TVHeadendOnly && r.opts.Output != "" {
		err = r.stage(StageWrite, func(context.Context) error {
			return epg.WriteFile(r.opts.Output, tv)
		})
		if err != nil {
			return fmt.Errorf("write xmltv: %w", err)
		}
		r.status.Output = r.opts.Output
		r.logger.Info().
			Str(xglog.FieldEvent, "xmltv.written").
			Str(xglog.FieldPath, r.opts.Output).
			Int("programmes", len(tv.Programmes)).
			Msg("XMLTV file written")
	}

	if r.opts.TVHeadend || r.opts.TVHeadendOnly {
		err = r.stage(StageDeliver, func(ctx context.Context) error {
			if r.deps.Sink == nil {
				return errors.New("no delivery sink configured")
			}
			if r.status.Output != "" {
				return delivery.SendFile(ctx, r.deps.Sink, r.status.Output)
			}
			return r.deps.Sink.Deliver(ctx, bytes.NewReader(doc))
		})
		metrics.RecordDelivery(err == nil)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		r.status.Delivered = true
	}
	return nil
}

// stage runs fn inside a span, records its timing and counts failures.
func (r *run) stage(name string, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartStage(r.ctx, name)
	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	telemetry.EndStage(span, err)

	r.status.Stages = append(r.status.Stages, StageTiming{Stage: name, Duration: elapsed})
	if err != nil {
		metrics.IncGrabFailure(name)
	}
	if r.opts.Debug {
		r.logger.Debug().
			Str(xglog.FieldEvent, "grab.stage").
			Str("stage", name).
			Int64(xglog.FieldElapsed, elapsed.Milliseconds()).
			Bool("ok", err == nil).
			Msg("stage finished")
	}
	return err
}

func (r *run) summary(err error) {
	s := r.status
	ev := r.logger.Info()
	if err != nil {
		ev = r.logger.Error().Err(err)
	}
	ev = ev.
		Str(xglog.FieldEvent, "grab.summary").
		Int(xglog.FieldChannels, s.Channels).
		Int(xglog.FieldListings, s.Listings).
		Int("programmes", s.Programmes).
		Int64(xglog.FieldElapsed, s.Duration().Milliseconds())
	if !r.opts.NoDetails {
		ev = ev.
			Int("details_total", s.Enrichment.Total).
			Int("details_enriched", s.Enrichment.Enriched).
			Int("details_failed", s.Enrichment.Failed).
			Int("connection_errors", s.Enrichment.ConnectionErrors).
			Bool("enrich_aborted", s.Enrichment.Aborted).
			Float64("success_rate", s.Enrichment.SuccessRate())
	}
	if err != nil {
		ev.Msg("guide grab failed")
	} else {
		ev.Msg("guide grab finished")
	}

	if !r.opts.NoDetails && s.Enrichment.Total > 0 && s.Enrichment.SuccessRate() < LowSuccessRate {
		r.logger.Warn().
			Str(xglog.FieldEvent, "enrich.low_success").
			Float64("success_rate", s.Enrichment.SuccessRate()).
			Msg("very few program details could be fetched; consider running with --no-details")
	}
}
