// SPDX-License-Identifier: MIT

// Package daemon runs the serve mode: periodic grabs, the HTTP surface and
// configuration reloads under one lifecycle.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/domevanzy/Zattoo-EPG/internal/jobs"
	"github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/store"
)

// GrabFunc performs one grab. Its status must not be nil.
type GrabFunc func(ctx context.Context) (*jobs.Status, error)

// DefaultHistoryKeep is how many runs survive pruning.
const DefaultHistoryKeep = 500

// Recorder persists run summaries.
type Recorder interface {
	Record(ctx context.Context, r store.Run) (store.Run, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Grabber serializes grabs and keeps the latest good document.
type Grabber struct {
	grab    GrabFunc
	history Recorder
	logger  zerolog.Logger

	sf singleflight.Group

	lifeMu sync.RWMutex
	life   context.Context

	mu        sync.RWMutex
	doc       []byte
	generated time.Time
	last      *jobs.Status
}

// NewGrabber wraps grab. history may be nil.
func NewGrabber(grab GrabFunc, history Recorder) *Grabber {
	return &Grabber{
		grab:    grab,
		history: history,
		logger:  log.WithComponent("daemon"),
		life:    context.Background(),
	}
}

// bind ties grabs to ctx, so they stop when the daemon shuts down rather
// than when the caller that started them goes away.
func (g *Grabber) bind(ctx context.Context) {
	g.lifeMu.Lock()
	g.life = ctx
	g.lifeMu.Unlock()
}

func (g *Grabber) lifetime() context.Context {
	g.lifeMu.RLock()
	defer g.lifeMu.RUnlock()
	return g.life
}

// Document returns the last successfully produced document.
func (g *Grabber) Document() ([]byte, time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.doc, g.generated, g.doc != nil
}

// LastStatus returns the summary of the most recent grab, failed or not.
func (g *Grabber) LastStatus() (*jobs.Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last, g.last != nil
}

type result struct {
	status *jobs.Status
	err    error
}

// Refresh runs a grab, or joins the one in flight. ctx bounds only the wait.
func (g *Grabber) Refresh(ctx context.Context) (*jobs.Status, error) {
	ch := g.sf.DoChan("grab", func() (any, error) {
		st, err := g.run(g.lifetime())
		return result{status: st, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.logger.Debug().Str(log.FieldEvent, "grab.joined").Msg("joined grab in flight")
		}
		r := res.Val.(result)
		return r.status, r.err
	}
}

func (g *Grabber) run(ctx context.Context) (*jobs.Status, error) {
	st, err := g.grab(ctx)
	if st == nil {
		st = &jobs.Status{}
		if err != nil {
			st.Error = err.Error()
		}
	}

	g.mu.Lock()
	g.last = st
	// A delivery failure still produced a valid document.
	if len(st.Document) > 0 {
		g.doc = st.Document
		g.generated = st.Finished
	}
	g.mu.Unlock()

	g.record(ctx, st, err)
	return st, err
}

func (g *Grabber) record(ctx context.Context, st *jobs.Status, grabErr error) {
	if g.history == nil {
		return
	}
	if err := RecordRun(ctx, g.history, st, grabErr); err != nil {
		g.logger.Warn().Err(err).
			Str(log.FieldEvent, "history.record_failed").
			Str(log.FieldJobID, st.JobID).
			Msg("could not record run")
	}
}

// RecordRun stores the summary of a finished grab and prunes old runs.
func RecordRun(ctx context.Context, rec Recorder, st *jobs.Status, grabErr error) error {
	run := store.Run{
		ID:         st.JobID,
		Started:    st.Started,
		Finished:   st.Finished,
		Status:     store.StatusSucceeded,
		Region:     st.Region,
		Channels:   st.Channels,
		Listings:   st.Listings,
		Programmes: st.Programmes,
		Enriched:   st.Enrichment.Enriched,
		Failed:     st.Enrichment.Failed,
		Aborted:    st.Enrichment.Aborted,
	}
	if grabErr != nil {
		run.Status = store.StatusFailed
		run.Error = grabErr.Error()
	}

	ctx = context.WithoutCancel(ctx)
	if _, err := rec.Record(ctx, run); err != nil {
		return err
	}
	if _, err := rec.Prune(ctx, DefaultHistoryKeep); err != nil {
		return err
	}
	return nil
}
