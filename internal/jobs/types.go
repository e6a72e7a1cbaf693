// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/delivery"
	"github.com/domevanzy/Zattoo-EPG/internal/epg"
	"github.com/domevanzy/Zattoo-EPG/internal/guide"
	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// Upstream is the full set of API calls a grab makes. *zapi.Client implements it.
type Upstream interface {
	session.Client
	guide.ListingSource
	guide.DetailSource
	Channels(ctx context.Context, hash string) ([]zapi.Channel, error)
}

// Deps holds the collaborators of a grab.
type Deps struct {
	Client Upstream
	// Details overrides Client for detail batches, e.g. with a cache in front.
	Details guide.DetailSource
	// Sink receives the document when TVHeadend delivery is requested.
	Sink delivery.Sink
	// Now and Sleep default to the real clock.
	Now   func() time.Time
	Sleep guide.Sleeper
}

// Options controls a single grab.
type Options struct {
	Region      session.Region
	Credentials session.Credentials
	DeviceUUID  string
	Days        int

	// Output is the XMLTV file path. Ignored with TVHeadendOnly.
	Output        string
	NoDetails     bool
	Dedupe        bool
	TVHeadend     bool
	TVHeadendOnly bool

	Build epg.BuildOptions
	// Debug logs per-stage timings.
	Debug bool
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// Status summarizes a grab. It is returned even when the grab fails.
type Status struct {
	JobID      string                 `json:"job_id"`
	Region     string                 `json:"region"`
	Started    time.Time              `json:"started"`
	Finished   time.Time              `json:"finished"`
	Channels   int                    `json:"channels"`
	Listings   int                    `json:"listings"`
	Programmes int                    `json:"programmes"`
	Enrichment guide.EnrichmentReport `json:"enrichment"`
	Output     string                 `json:"output,omitempty"`
	Delivered  bool                   `json:"delivered"`
	Stages     []StageTiming          `json:"stages,omitempty"`
	Error      string                 `json:"error,omitempty"`

	// Document is the serialized XMLTV document.
	Document []byte `json:"-"`
}

// Duration is the wall time of the grab.
func (s *Status) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
