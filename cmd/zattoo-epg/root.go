// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/config"
	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/store"
	"github.com/domevanzy/Zattoo-EPG/internal/telemetry"
	"github.com/domevanzy/Zattoo-EPG/internal/version"
)

const serviceName = "zattoo-epg"

type rootOptions struct {
	configPath string
	logLevel   string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Grab the Zattoo programme guide as XMLTV",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file; a .json file is read as legacy credentials")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.pretty, "pretty", false, "human readable console logs instead of JSON")

	cmd.AddCommand(
		newGrabCmd(opts),
		newServeCmd(opts),
		newRunsCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// newLoader maps --config onto a loader. A .json path is the legacy
// credentials file and leaves the YAML layer empty.
func (o *rootOptions) newLoader() (*config.Loader, string) {
	path := strings.TrimSpace(o.configPath)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.NewLoader(""), path
	}
	return config.NewLoader(path), ""
}

// load resolves the configuration, applies flag overrides and validates the
// result again.
func (o *rootOptions) load(override func(*config.Config)) (config.Config, *config.Loader, error) {
	loader, legacyCreds := o.newLoader()
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, err
	}
	if legacyCreds != "" {
		cfg.Creds.File = legacyCreds
	}
	if o.logLevel != "" {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if override != nil {
		override(&cfg)
		cfg.Region = strings.ToUpper(strings.TrimSpace(cfg.Region))
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, loader, nil
}

func (o *rootOptions) configureLogging(cmd *cobra.Command, cfg config.Config) {
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  cmd.ErrOrStderr(),
		Service: serviceName,
		Version: version.Version,
		Pretty:  o.pretty,
	})
}

// startTelemetry installs the tracer provider and returns its shutdown.
func startTelemetry(ctx context.Context, cfg config.Config) (func(), error) {
	p, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return func() {}, fmt.Errorf("init telemetry: %w", err)
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.Shutdown(sctx); err != nil {
			logger := xglog.WithComponent("telemetry")
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}, nil
}

// openDetailCache returns nil when caching is disabled.
func openDetailCache(cfg config.Config) (cache.Cache, error) {
	if cfg.Cache.Backend == cache.BackendNone || cfg.Cache.Backend == "" {
		return nil, nil
	}
	c, err := cache.New(cache.Config{
		Backend: cfg.Cache.Backend,
		Redis: cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddr,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: serviceName + ":",
		},
	}, xglog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("open detail cache: %w", err)
	}
	return c, nil
}

// openHistory returns nil when history.path is empty.
func openHistory(cfg config.Config) (*store.Store, error) {
	if cfg.History.Path == "" {
		return nil, nil
	}
	s, err := store.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}
