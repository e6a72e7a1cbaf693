// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/domevanzy/Zattoo-EPG/internal/api"
	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/config"
	"github.com/domevanzy/Zattoo-EPG/internal/daemon"
	"github.com/domevanzy/Zattoo-EPG/internal/jobs"
	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/version"
)

type serveOptions struct {
	listen string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Grab on a schedule and serve the latest document over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, o)
		},
	}
	cmd.Flags().StringVar(&o.listen, "listen", "", "HTTP listen address")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, o *serveOptions) error {
	ctx := cmd.Context()
	cfg, loader, err := root.load(func(c *config.Config) {
		if cmd.Flags().Changed("listen") {
			c.Serve.Listen = o.listen
		}
	})
	if err != nil {
		return err
	}
	root.configureLogging(cmd, cfg)
	logger := xglog.WithComponent("cli")

	// Serve mode never prompts; the login must be available up front.
	initialCreds, err := cfg.Credentials()
	if err != nil {
		return err
	}

	shutdown, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	details, err := openDetailCache(cfg)
	if err != nil {
		return err
	}
	if details != nil {
		defer func() { _ = details.Close() }()
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}

	var (
		recorder daemon.Recorder
		runs     api.History
	)
	if history != nil {
		defer func() { _ = history.Close() }()
		recorder, runs = history, history
	}

	holder := config.NewHolder(cfg, loader)
	grabber := daemon.NewGrabber(newScheduledGrab(holder, initialCreds, details), recorder)

	apiCfg := api.Config{
		Backend: grabber,
		History: runs,
		Version: version.Version,
	}
	if cfg.Telemetry.Enabled {
		apiCfg.TracingService = serviceName
	}

	app, err := daemon.New(daemon.Config{
		Grabber: grabber,
		Handler: api.New(apiCfg).Handler(),
		Listen:  cfg.Serve.Listen,
		Holder:  holder,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str(xglog.FieldEvent, "serve.start").
		Str("listen", cfg.Serve.Listen).
		Dur("interval", cfg.Serve.Interval).
		Msg("starting serve mode")
	return app.Run(ctx)
}

// newScheduledGrab reads the active configuration on every run, so reloaded
// settings apply to the next grab.
func newScheduledGrab(holder *config.Holder, initial session.Credentials, details cache.Cache) daemon.GrabFunc {
	return func(ctx context.Context) (*jobs.Status, error) {
		cfg := holder.Get()
		creds := initial
		if c, err := cfg.Credentials(); err == nil {
			creds = c
		}

		opts, err := jobs.OptionsFromConfig(cfg, creds)
		if err != nil {
			return failedStatus(cfg, err), err
		}
		deps, err := jobs.NewDeps(cfg, details)
		if err != nil {
			return failedStatus(cfg, err), err
		}
		return jobs.Grab(ctx, deps, opts)
	}
}

func failedStatus(cfg config.Config, err error) *jobs.Status {
	now := time.Now()
	return &jobs.Status{Region: cfg.Region, Started: now, Finished: now, Error: err.Error()}
}
