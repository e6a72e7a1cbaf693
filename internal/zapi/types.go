// SPDX-License-Identifier: MIT

package zapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString handles JSON fields that can be "123" or 123. Numbers are kept in
// their integer text form so both encodings of a program id compare equal.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(CanonicalID(v))
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("flexstring: invalid json value: %s", string(b))
	}
	if i, err := n.Int64(); err == nil {
		*s = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	// 12345.0 style ids
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*s = FlexString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// CanonicalID normalizes a program id so "42", " 42 " and "42.0" compare
// equal to the number 42. Non-numeric ids are only trimmed.
func CanonicalID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}
	if i, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(id, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return id
}

// FlexInt handles JSON fields that can be "123" or 123. Empty values decode to 0.
type FlexInt int64

func (v *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*v = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*v = 0
			return nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("flexint: invalid string %q", s)
		}
		*v = FlexInt(i)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("flexint: invalid json value: %s", string(b))
	}
	if i, err := n.Int64(); err == nil {
		*v = FlexInt(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("flexint: not a number: %s", n.String())
	}
	*v = FlexInt(int64(f))
	return nil
}

// LoginSession is the subset of the login response the grabber relies on.
type LoginSession struct {
	ServiceRegionCountry string `json:"service_region_country"`
	PowerGuideHash       string `json:"power_guide_hash"`
}

// Channel is one entry of the channel list.
type Channel struct {
	CID   string
	Title string
	Logo  string // as delivered (may be a relative path)
}

// Program is a coarse listing entry from the power guide.
type Program struct {
	ID           FlexString `json:"id"`
	ChannelID    string     `json:"cid,omitempty"`
	Start        FlexInt    `json:"s"`
	End          FlexInt    `json:"e"`
	Title        string     `json:"t"`
	EpisodeTitle string     `json:"et,omitempty"`
	ImageToken   string     `json:"i_t,omitempty"`
}

// GuideChannel groups the programs of one channel inside a guide window.
type GuideChannel struct {
	CID      string    `json:"cid"`
	ID       string    `json:"id"`
	Programs []Program `json:"programs"`
}

// ChannelID returns cid, falling back to id.
func (g GuideChannel) ChannelID() string {
	if g.CID != "" {
		return g.CID
	}
	return g.ID
}

// Credits lists credited people per role.
type Credits struct {
	Director []string `json:"director,omitempty"`
	Actor    []string `json:"actor,omitempty"`
}

// ProgramDetails is the sparse detail record of a single program.
type ProgramDetails struct {
	ID           FlexString `json:"id"`
	Title        string     `json:"t,omitempty"`
	EpisodeTitle string     `json:"et,omitempty"`
	Description  string     `json:"d,omitempty"`
	ImageToken   string     `json:"i_t,omitempty"`
	Start        FlexInt    `json:"s,omitempty"`
	End          FlexInt    `json:"e,omitempty"`
	Year         FlexInt    `json:"year,omitempty"`
	Country      string     `json:"country,omitempty"`
	Genres       []string   `json:"g,omitempty"`
	Credits      Credits    `json:"cr,omitempty"`
	Season       FlexInt    `json:"s_no,omitempty"`
	Episode      FlexInt    `json:"e_no,omitempty"`
	Rating       FlexString `json:"yp_r,omitempty"`
}

type envelope struct {
	Success *bool `json:"success"`
}

func (e envelope) ok() bool { return e.Success != nil && *e.Success }

type tokenResponse struct {
	SessionToken string `json:"session_token"`
}

type loginResponse struct {
	envelope
	Session LoginSession `json:"session"`
}

type channelsResponse struct {
	envelope
	ChannelGroups []struct {
		Channels []struct {
			CID       string `json:"cid"`
			Title     string `json:"title"`
			Qualities []struct {
				LogoBlack84 string `json:"logo_black_84"`
			} `json:"qualities"`
		} `json:"channels"`
	} `json:"channel_groups"`
}

type guideResponse struct {
	envelope
	Channels []GuideChannel `json:"channels"`
}

type detailsResponse struct {
	envelope
	Programs json.RawMessage `json:"programs"`
}
