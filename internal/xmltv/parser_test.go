package xmltv

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseFullDocument(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="c1">
    <display-name>Channel One</display-name>
    <icon src="http://x/i.png"/>
  </channel>
  <channel id="c2">
    <display-name>Channel Two</display-name>
  </channel>
  <programme channel="c1" start="20230101120000 +0000" stop="20230101123000 +0000">
    <title>News</title>
    <desc>The midday news.</desc>
  </programme>
  <programme channel="c2" start="20230101120000 +0100" stop="20230101130000 +0100">
    <title>Film</title>
  </programme>
</tv>`

	channels, programmes, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("channels: want 2, got %d", len(channels))
	}
	if channels[0].ID != "c1" || channels[0].Name != "Channel One" || channels[0].Icon != "http://x/i.png" {
		t.Errorf("channel 0: got %+v", channels[0])
	}
	if channels[1].Icon != "" {
		t.Errorf("channel 1 icon: want empty, got %q", channels[1].Icon)
	}

	if len(programmes) != 2 {
		t.Fatalf("programmes: want 2, got %d", len(programmes))
	}
	p := programmes[0]
	if p.ChannelID != "c1" || p.Title != "News" || p.Desc != "The midday news." {
		t.Errorf("programme 0: got %+v", p)
	}
	if want := int64(1672574400); p.Start != want { // 2023-01-01T12:00:00Z
		t.Errorf("programme 0 start: want %d, got %d", want, p.Start)
	}
	if p.Stop-p.Start != 1800 {
		t.Errorf("programme 0 duration: want 1800, got %d", p.Stop-p.Start)
	}
	// +0100 offset shifts the second programme an hour earlier in UTC.
	if want := int64(1672570800); programmes[1].Start != want {
		t.Errorf("programme 1 start: want %d, got %d", want, programmes[1].Start)
	}
}

func TestParseSkipsMalformedEntries(t *testing.T) {
	doc := `<tv>
  <channel id="c1"><display-name>A</display-name></channel>
  <channel id="c2"></channel>
  <channel><display-name>No ID</display-name></channel>
  <programme channel="c1" start="20230101120000 +0000">
    <title>Missing stop</title>
  </programme>
  <programme channel="c1" start="not-a-date" stop="20230101130000 +0000">
    <title>Bad start</title>
  </programme>
  <programme channel="c1" start="20230101120000 +0000" stop="20230101130000 +0000"></programme>
</tv>`

	channels, programmes, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(channels) != 1 || channels[0].ID != "c1" {
		t.Errorf("channels: want only c1, got %+v", channels)
	}
	if len(programmes) != 0 {
		t.Errorf("programmes: want none, got %+v", programmes)
	}
}

func TestParseConcatenatesSplitText(t *testing.T) {
	// The comment splits the title into two character-data chunks; each is
	// trimmed and the chunks are appended, not replaced.
	doc := `<tv>
  <channel id="c1"><display-name>One</display-name></channel>
  <programme channel="c1" start="20230101120000 +0000" stop="20230101130000 +0000">
    <title>Tom<!-- split -->Jerry</title>
  </programme>
</tv>`

	_, programmes, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(programmes) != 1 {
		t.Fatalf("programmes: want 1, got %d", len(programmes))
	}
	if got := programmes[0].Title; got != "TomJerry" {
		t.Errorf("title: want TomJerry, got %q", got)
	}
}

func TestParseMalformedXML(t *testing.T) {
	doc := `<tv><channel id="c1"><display-name>A</display-name>`
	_, _, err := Parse(strings.NewReader(doc + "<unterminated"))
	if err == nil {
		t.Fatal("want ParseError for malformed XML")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("want *ParseError, got %T: %v", err, err)
	}
}

func TestParseTimeFallbackLocal(t *testing.T) {
	ts, ok := parseTime("20230615083000")
	if !ok {
		t.Fatal("offset-less timestamp did not parse")
	}
	want := time.Date(2023, 6, 15, 8, 30, 0, 0, time.Local).Unix()
	if ts != want {
		t.Errorf("local fallback: want %d, got %d", want, ts)
	}

	if _, ok := parseTime("garbage"); ok {
		t.Error("garbage timestamp parsed")
	}
}
