// SPDX-License-Identifier: MIT

package epg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/guide"
)

const (
	DefaultLang      = "de"
	DefaultUTCOffset = "+0200"
	DefaultGenerator = "zattoo-epg"
	DefaultSourceURL = "https://zattoo.com/"

	LogoBaseURL   = "https://logos.zattic.com"
	ImageURLFmt   = "https://images.zattic.com/cms/%s/original.jpg"
	RatingSystem  = "FSK"
	EpisodeSystem = "xmltv_ns"

	timeLayout = "20060102150405 -0700"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2})(\d{2})$`)

// ParseUTCOffset turns "+0200" into a fixed zone.
func ParseUTCOffset(s string) (*time.Location, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid UTC offset %q (want ±HHMM)", s)
	}
	h, _ := strconv.Atoi(m[2])
	mins, _ := strconv.Atoi(m[3])
	if h > 14 || mins > 59 {
		return nil, fmt.Errorf("invalid UTC offset %q", s)
	}
	secs := h*3600 + mins*60
	if m[1] == "-" {
		secs = -secs
	}
	return time.FixedZone(m[0], secs), nil
}

// BuildOptions control document rendering.
type BuildOptions struct {
	Lang      string
	Zone      *time.Location // nil means DefaultUTCOffset
	Generator string
	SourceURL string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Lang == "" {
		o.Lang = DefaultLang
	}
	if o.Zone == nil {
		o.Zone, _ = ParseUTCOffset(DefaultUTCOffset)
	}
	if o.Generator == "" {
		o.Generator = DefaultGenerator
	}
	if o.SourceURL == "" {
		o.SourceURL = DefaultSourceURL
	}
	return o
}

// Build renders channels and listings into a document. Listings missing a
// channel, start, end or title, or referencing an unknown channel, are dropped.
func Build(channels []guide.Channel, listings []guide.Listing, opts BuildOptions) *TV {
	opts = opts.withDefaults()
	tv := &TV{
		SourceInfoURL: opts.SourceURL,
		SourceDataURL: opts.SourceURL,
		Generator:     opts.Generator,
		Channels:      make([]Channel, 0, len(channels)),
		Programmes:    make([]Programme, 0, len(listings)),
	}

	known := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if ch.ID == "" {
			continue
		}
		known[ch.ID] = struct{}{}
		c := Channel{
			ID:          ch.ID,
			DisplayName: []Text{{Lang: opts.Lang, Value: Sanitize(ch.Title)}},
		}
		if logo := LogoURL(ch.Logo); logo != "" {
			c.Icon = &Icon{Src: logo}
		}
		tv.Channels = append(tv.Channels, c)
	}

	for _, l := range listings {
		if l.ChannelID == "" || l.Start == 0 || l.End == 0 {
			continue
		}
		if _, ok := known[l.ChannelID]; !ok {
			continue
		}
		title := Sanitize(l.Title)
		if title == "" {
			continue
		}
		tv.Programmes = append(tv.Programmes, programme(l, title, opts))
	}
	return tv
}

func programme(l guide.Listing, title string, opts BuildOptions) Programme {
	d := l.Details
	p := Programme{
		Start:   FormatTime(l.Start, opts.Zone),
		Stop:    FormatTime(l.End, opts.Zone),
		Channel: l.ChannelID,
		Title:   Text{Lang: opts.Lang, Value: title},
	}
	if v := Sanitize(d.Subtitle); v != "" {
		p.SubTitle = &Text{Lang: opts.Lang, Value: v}
	}
	if v := Sanitize(d.Description); v != "" {
		p.Desc = &Text{Lang: opts.Lang, Value: v}
	}
	if d.ImageToken != "" {
		p.Icon = &Icon{Src: fmt.Sprintf(ImageURLFmt, d.ImageToken)}
	}
	if d.Year > 0 {
		p.Date = strconv.Itoa(d.Year)
	}
	if v := Sanitize(d.Country); v != "" {
		p.Country = &Text{Value: v}
	}
	for _, g := range d.Genres {
		if v := Sanitize(g); v != "" {
			p.Categories = append(p.Categories, Text{Lang: opts.Lang, Value: v})
		}
	}

	var credits Credits
	for _, n := range d.Directors {
		if v := Sanitize(n); v != "" {
			credits.Directors = append(credits.Directors, Text{Value: v})
		}
	}
	for _, n := range d.Actors {
		if v := Sanitize(n); v != "" {
			credits.Actors = append(credits.Actors, Text{Value: v})
		}
	}
	if len(credits.Directors)+len(credits.Actors) > 0 {
		p.Credits = &credits
	}

	if ep := EpisodeNumber(d.Season, d.Episode); ep != "" {
		p.EpisodeNum = &EpisodeNum{System: EpisodeSystem, Value: ep}
	}
	if r := strings.TrimSpace(d.Rating); r != "" {
		p.Rating = &Rating{System: RatingSystem, Value: r}
	}
	return p
}

// EpisodeNumber renders xmltv_ns numbering from one-based season and
// episode. Zero means absent: "S.E.", "S." or ".E.".
func EpisodeNumber(season, episode int) string {
	switch {
	case season > 0 && episode > 0:
		return fmt.Sprintf("%d.%d.", season-1, episode-1)
	case season > 0:
		return fmt.Sprintf("%d.", season-1)
	case episode > 0:
		return fmt.Sprintf(".%d.", episode-1)
	default:
		return ""
	}
}

// FormatTime renders unix seconds as "YYYYMMDDHHMMSS ±ZZZZ" in zone.
func FormatTime(unix int64, zone *time.Location) string {
	return time.Unix(unix, 0).In(zone).Format(timeLayout)
}

// LogoURL makes relative logo paths absolute.
func LogoURL(logo string) string {
	logo = strings.TrimSpace(logo)
	if strings.HasPrefix(logo, "/") {
		return LogoBaseURL + logo
	}
	return logo
}
