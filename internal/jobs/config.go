// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"

	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/config"
	"github.com/domevanzy/Zattoo-EPG/internal/delivery"
	"github.com/domevanzy/Zattoo-EPG/internal/epg"
	"github.com/domevanzy/Zattoo-EPG/internal/guide"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// OptionsFromConfig maps a resolved configuration onto grab options.
func OptionsFromConfig(cfg config.Config, creds session.Credentials) (Options, error) {
	region, err := session.ParseRegion(cfg.Region)
	if err != nil {
		return Options{}, err
	}
	zone, err := epg.ParseUTCOffset(cfg.XMLTV.UTCOffset)
	if err != nil {
		return Options{}, fmt.Errorf("xmltv: %w", err)
	}

	return Options{
		Region:        region,
		Credentials:   creds,
		DeviceUUID:    cfg.ZAPI.DeviceUUID,
		Days:          cfg.Days,
		Output:        cfg.Output,
		NoDetails:     cfg.NoDetails,
		Dedupe:        cfg.EPG.Dedupe,
		TVHeadend:     cfg.TVHeadend.Enabled,
		TVHeadendOnly: cfg.TVHeadend.Only,
		Build: epg.BuildOptions{
			Lang: cfg.XMLTV.Lang,
			Zone: zone,
		},
		Debug: cfg.LogLevel == "debug",
	}, nil
}

// NewDeps builds production collaborators for one grab. A nil details cache
// sends every detail batch upstream.
func NewDeps(cfg config.Config, details cache.Cache) (Deps, error) {
	client, err := zapi.New(zapi.Options{
		BaseURL:   cfg.ZAPI.BaseURL,
		Timeout:   cfg.ZAPI.Timeout,
		UserAgent: cfg.ZAPI.UserAgent,
		RateLimit: cfg.ZAPI.RateLimit,
	})
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{Client: client}
	if details != nil {
		deps.Details = &guide.CachedDetails{Source: client, Cache: details, TTL: cfg.Cache.TTL}
	}
	if cfg.TVHeadend.Enabled || cfg.TVHeadend.Only {
		deps.Sink = delivery.NewSocketSink(cfg.TVHeadend.Socket)
	}
	return deps, nil
}
