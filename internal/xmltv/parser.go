// Package xmltv provides streaming XMLTV parsing, gzip decompression and
// guide export for electronic program guide data.
package xmltv

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/mbeukers/tvguide/internal/model"
)

// ParseError reports a malformed XMLTV document. Missing or invalid domain
// fields never produce a ParseError; those entries are skipped instead.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "xmltv: malformed document: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// channelAcc accumulates one <channel> element.
type channelAcc struct {
	open bool
	id   string
	name strings.Builder
	icon string
}

// programmeAcc accumulates one <programme> element.
type programmeAcc struct {
	open      bool
	channelID string
	start     string
	stop      string
	title     strings.Builder
	desc      strings.Builder
}

// Parse consumes an XMLTV document from r and returns the channel and
// programme batches. It decodes token by token, so only the output batches
// and the per-element accumulators are resident regardless of feed size.
// Entries with missing ids, empty names, absent fields or unparseable
// timestamps are dropped silently; only ill-formed XML is an error.
func Parse(r io.Reader) ([]model.Channel, []model.Programme, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	var (
		channels   []model.Channel
		programmes []model.Programme
		ch         channelAcc
		prog       programmeAcc
		current    string // element currently receiving character data
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			switch t.Name.Local {
			case "channel":
				ch = channelAcc{open: true, id: attr(t, "id")}
			case "programme":
				prog = programmeAcc{
					open:      true,
					channelID: attr(t, "channel"),
					start:     attr(t, "start"),
					stop:      attr(t, "stop"),
				}
			case "icon":
				if ch.open {
					ch.icon = attr(t, "src")
				}
			}

		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				break
			}
			switch {
			case current == "display-name" && ch.open:
				ch.name.WriteString(text)
			case current == "title" && prog.open:
				prog.title.WriteString(text)
			case current == "desc" && prog.open:
				prog.desc.WriteString(text)
			}

		case xml.EndElement:
			current = ""
			switch t.Name.Local {
			case "channel":
				if ch.open && ch.id != "" && ch.name.Len() > 0 {
					channels = append(channels, model.Channel{
						ID:   ch.id,
						Name: ch.name.String(),
						Icon: ch.icon,
					})
				}
				ch = channelAcc{}
			case "programme":
				if p, ok := prog.finish(); ok {
					programmes = append(programmes, p)
				}
				prog = programmeAcc{}
			}
		}
	}

	return channels, programmes, nil
}

// finish validates the accumulated programme. All of channel, start, stop and
// title must be present and both timestamps must parse.
func (a *programmeAcc) finish() (model.Programme, bool) {
	if !a.open || a.channelID == "" || a.start == "" || a.stop == "" || a.title.Len() == 0 {
		return model.Programme{}, false
	}
	start, ok := parseTime(a.start)
	if !ok {
		return model.Programme{}, false
	}
	stop, ok := parseTime(a.stop)
	if !ok {
		return model.Programme{}, false
	}
	return model.Programme{
		ChannelID: a.channelID,
		Start:     start,
		Stop:      stop,
		Title:     a.title.String(),
		Desc:      a.desc.String(),
	}, true
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// parseTime parses an XMLTV timestamp such as "20230101120000 +0100" into
// Unix seconds. Timestamps without an offset are interpreted as local time.
func parseTime(s string) (int64, bool) {
	if t, err := time.Parse("20060102150405 -0700", s); err == nil {
		return t.Unix(), true
	}
	if t, err := time.ParseInLocation("20060102150405", s, time.Local); err == nil {
		return t.Unix(), true
	}
	return 0, false
}
