// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/domevanzy/Zattoo-EPG/internal/config"
	"github.com/domevanzy/Zattoo-EPG/internal/daemon"
	"github.com/domevanzy/Zattoo-EPG/internal/jobs"
	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
)

type grabOptions struct {
	region          string
	days            int
	output          string
	noDetails       bool
	dedupe          bool
	interactive     bool
	saveCredentials string
	debug           bool
	tvheadend       bool
	tvheadendOnly   bool
	tvheadendSocket string
}

func newGrabCmd(root *rootOptions) *cobra.Command {
	o := &grabOptions{}
	cmd := &cobra.Command{
		Use:   "grab",
		Short: "Run one grab and write or deliver the XMLTV document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrab(cmd, root, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.region, "country", "c", "", "service region (DE or CH)")
	f.IntVarP(&o.days, "days", "d", 0, "number of days to grab (1-14)")
	f.StringVarP(&o.output, "output", "o", "", "XMLTV output file")
	f.BoolVar(&o.noDetails, "no-details", false, "skip the per-programme detail requests")
	f.BoolVar(&o.dedupe, "dedupe", false, "drop listings that repeat a channel and start time")
	f.BoolVar(&o.interactive, "interactive", false, "ask for email and password instead of reading them from configuration")
	f.StringVar(&o.saveCredentials, "save-credentials", "", "write the prompted credentials to this JSON file")
	f.BoolVar(&o.debug, "debug", false, "log per-stage timings")
	f.BoolVar(&o.tvheadend, "tvheadend", false, "send the written file to TVHeadend")
	f.BoolVar(&o.tvheadendOnly, "tvheadend-only", false, "stream the document to TVHeadend without writing a file")
	f.StringVar(&o.tvheadendSocket, "tvheadend-socket", "", "TVHeadend XMLTV socket path")
	return cmd
}

func (o *grabOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("country") {
		cfg.Region = o.region
	}
	if f.Changed("days") {
		cfg.Days = o.days
	}
	if f.Changed("output") {
		cfg.Output = o.output
	}
	if f.Changed("no-details") {
		cfg.NoDetails = o.noDetails
	}
	if f.Changed("dedupe") {
		cfg.EPG.Dedupe = o.dedupe
	}
	if f.Changed("tvheadend") {
		cfg.TVHeadend.Enabled = o.tvheadend
	}
	if f.Changed("tvheadend-only") {
		cfg.TVHeadend.Only = o.tvheadendOnly
	}
	if f.Changed("tvheadend-socket") {
		cfg.TVHeadend.Socket = o.tvheadendSocket
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}
}

func runGrab(cmd *cobra.Command, root *rootOptions, o *grabOptions) error {
	ctx := cmd.Context()
	cfg, _, err := root.load(func(c *config.Config) { o.apply(cmd, c) })
	if err != nil {
		return err
	}
	root.configureLogging(cmd, cfg)
	logger := xglog.WithComponent("cli")

	creds, err := o.credentials(cmd, cfg)
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
	if history != nil {
		defer func() { _ = history.Close() }()
	}

	opts, err := jobs.OptionsFromConfig(cfg, creds)
	if err != nil {
		return err
	}
	deps, err := jobs.NewDeps(cfg, details)
	if err != nil {
		return err
	}

	st, grabErr := jobs.Grab(ctx, deps, opts)
	if history != nil {
		if err := daemon.RecordRun(ctx, history, st, grabErr); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "history.record_failed").Msg("could not record run")
		}
	}
	if grabErr != nil {
		return grabErr
	}

	out := cmd.OutOrStdout()
	switch {
	case st.Delivered && st.Output == "":
		_, _ = fmt.Fprintln(out, "EPG data sent directly to TVHeadend.")
	case st.Delivered:
		_, _ = fmt.Fprintf(out, "XMLTV written to %s and sent to TVHeadend.\n", st.Output)
	default:
		_, _ = fmt.Fprintf(out, "XMLTV written to %s.\n", st.Output)
	}
	return nil
}

// credentials prompts in interactive mode and otherwise resolves them from
// configuration.
func (o *grabOptions) credentials(cmd *cobra.Command, cfg config.Config) (session.Credentials, error) {
	if !o.interactive {
		creds, err := cfg.Credentials()
		if errors.Is(err, config.ErrNoCredentials) {
			return creds, fmt.Errorf("%w; set ZATTOO_EMAIL and ZATTOO_PASSWORD or run with --interactive", err)
		}
		return creds, err
	}

	creds, err := config.Prompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return creds, err
	}
	if o.saveCredentials != "" {
		if err := config.WriteCredentialsFile(o.saveCredentials, creds); err != nil {
			return creds, err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Credentials saved to %s.\n", o.saveCredentials)
	}
	return creds, nil
}
