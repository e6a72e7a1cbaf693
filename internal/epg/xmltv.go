// SPDX-License-Identifier: MIT

// Package epg builds and writes XMLTV documents.
package epg

import "encoding/xml"

// TV is the XMLTV root element.
type TV struct {
	XMLName       xml.Name    `xml:"tv"`
	SourceInfoURL string      `xml:"source-info-url,attr,omitempty"`
	SourceDataURL string      `xml:"source-data-url,attr,omitempty"`
	Generator     string      `xml:"generator-info-name,attr,omitempty"`
	Channels      []Channel   `xml:"channel"`
	Programmes    []Programme `xml:"programme"`
}

// Channel is a <channel> element.
type Channel struct {
	ID          string `xml:"id,attr"`
	DisplayName []Text `xml:"display-name"`
	Icon        *Icon  `xml:"icon,omitempty"`
}

// Icon references an image.
type Icon struct {
	Src string `xml:"src,attr"`
}

// Text is an element whose content is already sanitized markup-safe text.
// Value is written verbatim; build it with Sanitize.
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",innerxml"`
}

// Programme is a <programme> element. Field order is the element order.
type Programme struct {
	Start      string      `xml:"start,attr"`
	Stop       string      `xml:"stop,attr"`
	Channel    string      `xml:"channel,attr"`
	Title      Text        `xml:"title"`
	SubTitle   *Text       `xml:"sub-title,omitempty"`
	Desc       *Text       `xml:"desc,omitempty"`
	Icon       *Icon       `xml:"icon,omitempty"`
	Date       string      `xml:"date,omitempty"`
	Country    *Text       `xml:"country,omitempty"`
	Categories []Text      `xml:"category"`
	Credits    *Credits    `xml:"credits,omitempty"`
	EpisodeNum *EpisodeNum `xml:"episode-num,omitempty"`
	Rating     *Rating     `xml:"rating,omitempty"`
}

// Credits lists directors before actors.
type Credits struct {
	Directors []Text `xml:"director"`
	Actors    []Text `xml:"actor"`
}

// EpisodeNum is an episode number in a named system.
type EpisodeNum struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

// Rating is an age rating in a named system.
type Rating struct {
	System string `xml:"system,attr"`
	Value  string `xml:"value"`
}
