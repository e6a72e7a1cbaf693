// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domevanzy/Zattoo-EPG/internal/config"
	"github.com/domevanzy/Zattoo-EPG/internal/log"
)

// DefaultShutdownTimeout bounds the graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// Config wires an App.
type Config struct {
	Grabber *Grabber
	Handler http.Handler

	// Listen is the TCP address. Listener, when set, is used instead.
	Listen   string
	Listener net.Listener

	// Holder supplies the grab interval and is watched for changes.
	// Without it Interval is used.
	Holder   *config.Holder
	Interval time.Duration

	ShutdownTimeout time.Duration
}

// App runs the scheduler and HTTP server until its context ends.
type App struct {
	cfg    Config
	logger zerolog.Logger
}

// New validates cfg and returns an App.
func New(cfg Config) (*App, error) {
	if cfg.Grabber == nil {
		return nil, errors.New("daemon: grabber is required")
	}
	if cfg.Handler == nil {
		return nil, errors.New("daemon: handler is required")
	}
	if cfg.Listener == nil && cfg.Listen == "" {
		return nil, errors.New("daemon: listen address is required")
	}
	if cfg.Holder == nil && cfg.Interval <= 0 {
		return nil, errors.New("daemon: interval must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &App{cfg: cfg, logger: log.WithComponent("daemon")}, nil
}

// Run blocks until ctx is cancelled or a component fails. A clean shutdown
// returns nil.
func (a *App) Run(ctx context.Context) error {
	ln := a.cfg.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", a.cfg.Listen, err)
		}
	}

	// /api/refresh holds its connection for a whole grab, so there is no
	// WriteTimeout.
	srv := &http.Server{
		Handler:           a.cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.cfg.Grabber.bind(gctx)

	if a.cfg.Holder != nil {
		if err := a.cfg.Holder.Watch(gctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watch_failed").Msg("config hot reload disabled")
		}
		g.Go(func() error {
			a.reloadOnSignal(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info().
			Str(log.FieldEvent, "http.listening").
			Str("addr", ln.Addr().String()).
			Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info().Str(log.FieldEvent, "http.shutdown").Msg("shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.schedule(gctx)
		return nil
	})

	err := g.Wait()
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return err
}

func (a *App) interval() time.Duration {
	if a.cfg.Holder != nil {
		if d := a.cfg.Holder.Get().Serve.Interval; d > 0 {
			return d
		}
	}
	if a.cfg.Interval > 0 {
		return a.cfg.Interval
	}
	return config.DefaultServeInterval
}

// schedule grabs immediately and then once per interval. A changed interval
// restarts the countdown.
func (a *App) schedule(ctx context.Context) {
	reloads := make(chan config.Config, 1)
	if a.cfg.Holder != nil {
		a.cfg.Holder.Subscribe(reloads)
	}

	interval := a.interval()
	a.tick(ctx, interval)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			interval = a.interval()
			a.tick(ctx, interval)
			timer.Reset(interval)
		case cfg := <-reloads:
			if cfg.Serve.Interval <= 0 || cfg.Serve.Interval == interval {
				continue
			}
			interval = cfg.Serve.Interval
			timer.Reset(interval)
			a.logger.Info().
				Str(log.FieldEvent, "schedule.interval_changed").
				Dur("interval", interval).
				Msg("grab interval changed")
		}
	}
}

func (a *App) tick(ctx context.Context, next time.Duration) {
	st, err := a.cfg.Grabber.Refresh(ctx)
	if ctx.Err() != nil {
		return
	}
	ev := a.logger.Info()
	if err != nil {
		ev = a.logger.Warn().Err(err)
	}
	if st != nil {
		ev = ev.Str(log.FieldJobID, st.JobID)
	}
	ev.Str(log.FieldEvent, "schedule.tick").
		Time("next_run", time.Now().Add(next)).
		Msg("scheduled grab finished")
}

func (a *App) reloadOnSignal(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			a.logger.Info().Str(log.FieldEvent, "config.sighup").Msg("received SIGHUP, reloading configuration")
			_ = a.cfg.Holder.Reload(ctx)
		}
	}
}
