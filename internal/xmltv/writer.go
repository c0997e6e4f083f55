package xmltv

import (
	"encoding/xml"
	"time"

	"github.com/mbeukers/tvguide/internal/model"
)

// tvDoc is the root of an exported XMLTV document.
type tvDoc struct {
	XMLName    xml.Name      `xml:"tv"`
	Generator  string        `xml:"generator-info-name,attr,omitempty"`
	Channels   []tvChannel   `xml:"channel"`
	Programmes []tvProgramme `xml:"programme"`
}

type tvChannel struct {
	ID          string  `xml:"id,attr"`
	DisplayName string  `xml:"display-name"`
	Icon        *tvIcon `xml:"icon,omitempty"`
}

type tvIcon struct {
	Src string `xml:"src,attr"`
}

type tvProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

const exportTimeFormat = "20060102150405 -0700"

// Export renders the stored guide back into an XMLTV document.
func Export(channels []model.Channel, programmes []model.Programme) ([]byte, error) {
	doc := tvDoc{Generator: "tvguide"}

	for _, c := range channels {
		tc := tvChannel{ID: c.ID, DisplayName: c.Name}
		if c.Icon != "" {
			tc.Icon = &tvIcon{Src: c.Icon}
		}
		doc.Channels = append(doc.Channels, tc)
	}
	for _, p := range programmes {
		doc.Programmes = append(doc.Programmes, tvProgramme{
			Start:   time.Unix(p.Start, 0).UTC().Format(exportTimeFormat),
			Stop:    time.Unix(p.Stop, 0).UTC().Format(exportTimeFormat),
			Channel: p.ChannelID,
			Title:   p.Title,
			Desc:    p.Desc,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
