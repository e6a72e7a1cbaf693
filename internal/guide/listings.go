// SPDX-License-Identifier: MIT

package guide

import (
	"context"
	"errors"
	"fmt"
	"time"

	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/metrics"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// ErrNoListings is returned when every listing window failed.
var ErrNoListings = errors.New("no listing window succeeded")

// DefaultWindowPause is the courtesy pause between listing windows.
const DefaultWindowPause = 100 * time.Millisecond

// ListingSource fetches all channels' programs for one window.
type ListingSource interface {
	PowerGuide(ctx context.Context, hash string, start, end int64) ([]zapi.GuideChannel, error)
}

// ListingFetcher walks the listing windows of a run sequentially.
type ListingFetcher struct {
	Source ListingSource
	Now    func() time.Time
	Sleep  Sleeper
	Pause  time.Duration
}

// ListingResult is the outcome of Fetch.
type ListingResult struct {
	Listings      []Listing
	Windows       int
	FailedWindows []int
}

// NewListingFetcher returns a fetcher with the real clock and sleeper.
func NewListingFetcher(src ListingSource) *ListingFetcher {
	return &ListingFetcher{Source: src, Now: time.Now, Sleep: Sleep, Pause: DefaultWindowPause}
}

// Fetch requests every window of days days from local midnight. Failed
// windows are skipped; the result keeps window order then source order.
func (f *ListingFetcher) Fetch(ctx context.Context, s session.Session, days int) (ListingResult, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	logger := xglog.WithComponentFromContext(ctx, "listings")
	windows := Windows(DayStart(now()), days)
	res := ListingResult{Windows: len(windows)}

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		started := time.Now()
		channels, err := f.Source.PowerGuide(ctx, s.GuideHash, w.Start, w.End)
		elapsed := time.Since(started)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.FailedWindows = append(res.FailedWindows, w.Index)
			metrics.RecordWindow(false)
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "listings.window_failed").
				Int(xglog.FieldWindow, w.Index).
				Int64("start", w.Start).
				Int64("end", w.End).
				Int64(xglog.FieldElapsed, elapsed.Milliseconds()).
				Msg("listing window failed, skipping")
		} else {
			n := 0
			for _, ch := range channels {
				cid := ch.ChannelID()
				if cid == "" {
					continue
				}
				for _, p := range ch.Programs {
					res.Listings = append(res.Listings, Listing{
						ID:        p.ID.String(),
						ChannelID: cid,
						Start:     int64(p.Start),
						End:       int64(p.End),
						Title:     p.Title,
						Details: Details{
							Subtitle:   p.EpisodeTitle,
							ImageToken: p.ImageToken,
						},
					})
					n++
				}
			}
			metrics.RecordWindow(true)
			logger.Debug().
				Str(xglog.FieldEvent, "listings.window").
				Int(xglog.FieldWindow, w.Index).
				Int(xglog.FieldListings, n).
				Int64(xglog.FieldElapsed, elapsed.Milliseconds()).
				Msg("listing window fetched")
		}

		if i < len(windows)-1 && f.Pause > 0 {
			if err := sleep(ctx, f.Pause); err != nil {
				return res, err
			}
		}
	}

	if len(windows) > 0 && len(res.FailedWindows) == len(windows) {
		return res, fmt.Errorf("%w: %d of %d windows failed", ErrNoListings, len(res.FailedWindows), len(windows))
	}

	logger.Info().
		Str(xglog.FieldEvent, "listings.done").
		Int(xglog.FieldListings, len(res.Listings)).
		Int("windows", res.Windows).
		Int("failed_windows", len(res.FailedWindows)).
		Msg("listings downloaded")
	return res, nil
}
