// SPDX-License-Identifier: MIT

// Package epg provides Electronic Program Guide functionality.
package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// TimeLayout is the XMLTV timestamp layout: YYYYMMDDHHMMSS ±HHMM.
const TimeLayout = "20060102150405 -0700"

// maxXMLSize bounds how much of a guide file is decoded.
const maxXMLSize = 50 * 1024 * 1024

// FormatTime formats t in XMLTV format in t's own (fixed) zone.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses an XMLTV timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse xmltv time %q: %w", s, err)
	}
	return t, nil
}

// Decode reads an XMLTV document strictly. Entity expansion is disabled.
func Decode(r io.Reader) (TV, error) {
	var doc TV
	dec := xml.NewDecoder(io.LimitReader(r, maxXMLSize))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return TV{}, fmt.Errorf("decode xmltv: %w", err)
	}
	return doc, nil
}

// ReadXMLTV decodes the guide at path.
func ReadXMLTV(path string) (TV, error) {
	path = filepath.Clean(path)
	// path comes from configuration, not from request input
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return TV{}, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}
