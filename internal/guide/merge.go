// SPDX-License-Identifier: MIT

package guide

// Merge returns a copy of listings with overlay details applied. Non-empty
// overlay fields replace base fields; inputs are not modified.
func Merge(listings []Listing, overlay Overlay) []Listing {
	out := make([]Listing, len(listings))
	for i, l := range listings {
		d, ok := overlay[l.ID]
		if !ok || l.ID == "" {
			out[i] = l
			continue
		}
		out[i] = apply(l, d)
	}
	return out
}

func apply(l Listing, d Details) Listing {
	if d.Title != "" {
		l.Title = d.Title
	}
	if d.Start != 0 {
		l.Start = d.Start
	}
	if d.End != 0 {
		l.End = d.End
	}

	b := l.Details
	setString(&b.Subtitle, d.Subtitle)
	setString(&b.Description, d.Description)
	setString(&b.ImageToken, d.ImageToken)
	setString(&b.Country, d.Country)
	setString(&b.Rating, d.Rating)
	if d.Year != 0 {
		b.Year = d.Year
	}
	if d.Season != 0 {
		b.Season = d.Season
	}
	if d.Episode != 0 {
		b.Episode = d.Episode
	}
	if len(d.Genres) > 0 {
		b.Genres = append([]string(nil), d.Genres...)
	}
	if len(d.Directors) > 0 {
		b.Directors = append([]string(nil), d.Directors...)
	}
	if len(d.Actors) > 0 {
		b.Actors = append([]string(nil), d.Actors...)
	}
	// listing-level fields live on the Listing itself
	b.Title, b.Start, b.End = "", 0, 0
	l.Details = b
	return l
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

type slotKey struct {
	channel    string
	start, end int64
}

// Dedupe drops listings repeating an earlier (channel, start, end) slot.
// The first occurrence wins.
func Dedupe(listings []Listing) []Listing {
	seen := make(map[slotKey]struct{}, len(listings))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		k := slotKey{l.ChannelID, l.Start, l.End}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}
