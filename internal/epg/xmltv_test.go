// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package epg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadXMLTV_Security(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		xmlContent  string
		expectError bool
	}{
		{
			name: "XXE Attack",
			xmlContent: `<?xml version="1.0" encoding="ISO-8859-1"?>
<!DOCTYPE foo [
  <!ELEMENT foo ANY >
  <!ENTITY xxe SYSTEM "file:///etc/passwd" >]><tv>
  <channel id="test">
    <display-name>&xxe;</display-name>
  </channel>
</tv>`,
			expectError: true,
		},
		{
			name: "Malformed XML",
			xmlContent: `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="test">
    <display-name>Unclosed Tag
  </channel>
</tv>`,
			expectError: true,
		},
		{
			name: "Billion Laughs Attack (Entity Expansion)",
			xmlContent: `<?xml version="1.0"?>
<!DOCTYPE lolz [
 <!ENTITY lol "lol">
 <!ENTITY lol1 "&lol;&lol;&lol;&lol;&lol;&lol;&lol;&lol;&lol;&lol;">
 <!ENTITY lol2 "&lol1;&lol1;&lol1;&lol1;&lol1;&lol1;&lol1;&lol1;&lol1;&lol1;">
]>
<tv>
 <channel id="test">
  <display-name>&lol2;</display-name>
 </channel>
</tv>`,
			expectError: true,
		},
		{
			name: "Valid guide",
			xmlContent: `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="tvsched">
  <channel id="teleamazonas.ec"><display-name>Teleamazonas</display-name></channel>
  <programme channel="teleamazonas.ec" start="20250106050000 -0500" stop="20250106060000 -0500">
    <title>Despertar</title>
  </programme>
</tv>`,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fPath := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+".xml")
			if err := os.WriteFile(fPath, []byte(tt.xmlContent), 0600); err != nil {
				t.Fatalf("Failed to write test file: %v", err)
			}

			tv, err := ReadXMLTV(fPath)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(tv.Programs) != 1 || tv.Programs[0].Title.Text != "Despertar" {
				t.Errorf("unexpected decode result: %+v", tv)
			}
		})
	}
}

func TestReadXMLTV_Missing(t *testing.T) {
	if _, err := ReadXMLTV(filepath.Join(t.TempDir(), "missing.xml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestDecode_IgnoresUnmodelledElements(t *testing.T) {
	doc := `<tv><channel id="a"><display-name>A</display-name><icon src="http://x/a.png"/></channel>` +
		`<programme start="20250106060000 -0500" stop="20250106070000 -0500" channel="a">` +
		`<title lang="es">Noticias</title><desc>Resumen</desc></programme></tv>`

	tv, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tv.Programs) != 1 || tv.Programs[0].Title.Text != "Noticias" {
		t.Fatalf("unexpected programmes: %+v", tv.Programs)
	}

	out, err := Marshal(tv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, unwanted := range []string{"<icon", "<desc", "lang="} {
		if strings.Contains(string(out), unwanted) {
			t.Errorf("re-encoded guide contains %q:\n%s", unwanted, out)
		}
	}
}

func TestFormatTime_FixedOffset(t *testing.T) {
	loc := time.FixedZone("UTC-05:00", -5*3600)
	ts := time.Date(2025, time.January, 6, 23, 30, 0, 0, loc)

	if got := FormatTime(ts); got != "20250106233000 -0500" {
		t.Errorf("FormatTime = %q", got)
	}

	parsed, err := ParseTime("20250106233000 -0500")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("ParseTime = %v, want %v", parsed, ts)
	}

	if _, err := ParseTime("2025-01-06 23:30"); err == nil {
		t.Error("expected error for non-XMLTV timestamp")
	}
}
