// SPDX-License-Identifier: MIT

// Package guide fetches listings and detail records and merges them into the
// record set handed to the XMLTV builder.
package guide

import (
	"context"
	"strings"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// Channel is a channel of the account's lineup.
type Channel struct {
	ID    string
	Title string
	Logo  string
}

// ChannelsFrom converts upstream channels.
func ChannelsFrom(in []zapi.Channel) []Channel {
	out := make([]Channel, 0, len(in))
	for _, c := range in {
		out = append(out, Channel{ID: c.CID, Title: c.Title, Logo: c.Logo})
	}
	return out
}

// Listing is a base guide record. ID is the canonical program id.
type Listing struct {
	ID        string
	ChannelID string
	Start     int64
	End       int64
	Title     string
	Details   Details
}

// Details is the optional field bag of a listing. Zero values mean absent.
type Details struct {
	Title       string
	Subtitle    string
	Description string
	ImageToken  string
	Start       int64
	End         int64
	Year        int
	Country     string
	Genres      []string
	Directors   []string
	Actors      []string
	Season      int
	Episode     int
	Rating      string
}

// IsZero reports whether no optional field is set.
func (d Details) IsZero() bool {
	return d.Title == "" && d.Subtitle == "" && d.Description == "" && d.ImageToken == "" &&
		d.Start == 0 && d.End == 0 && d.Year == 0 && d.Country == "" &&
		len(d.Genres) == 0 && len(d.Directors) == 0 && len(d.Actors) == 0 &&
		d.Season == 0 && d.Episode == 0 && d.Rating == ""
}

// DetailsFrom converts an upstream detail record.
func DetailsFrom(p zapi.ProgramDetails) Details {
	return Details{
		Title:       strings.TrimSpace(p.Title),
		Subtitle:    strings.TrimSpace(p.EpisodeTitle),
		Description: p.Description,
		ImageToken:  p.ImageToken,
		Start:       int64(p.Start),
		End:         int64(p.End),
		Year:        int(p.Year),
		Country:     p.Country,
		Genres:      compact(p.Genres),
		Directors:   compact(p.Credits.Director),
		Actors:      compact(p.Credits.Actor),
		Season:      int(p.Season),
		Episode:     int(p.Episode),
		Rating:      p.Rating.String(),
	}
}

// Overlay maps program ids to their detail records.
type Overlay map[string]Details

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
