// SPDX-License-Identifier: MIT

package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Header precedes every document.
const Header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n"

// Encode writes the document with header and doctype to w.
func Encode(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the serialized document.
func Marshal(tv *TV) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
