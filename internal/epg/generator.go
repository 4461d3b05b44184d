// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// GeneratorName is written to the generator-info-name attribute.
const GeneratorName = "tvsched"

type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   Title  `xml:"title"`
}

type Title struct {
	Text string `xml:",chardata"`
}

// GenerateXMLTV assembles a guide document.
func GenerateXMLTV(channels []Channel, programmes []Programme) TV {
	if programmes == nil {
		programmes = []Programme{}
	}
	return TV{
		Generator: GeneratorName,
		Channels:  channels,
		Programs:  programmes,
	}
}

// Encode writes tv as an indented XMLTV document including the XML header.
func Encode(w io.Writer, tv TV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal renders tv to bytes.
func Marshal(tv TV) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXMLTV writes tv to path atomically: readers see either the previous guide
// or the complete new one, never a partial file.
func WriteXMLTV(tv TV, path string) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("create pending XMLTV file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if err := Encode(pendingFile, tv); err != nil {
		return fmt.Errorf("write XMLTV data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace XMLTV file: %w", err)
	}
	return nil
}
