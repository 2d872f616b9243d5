package qptiff

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// qpiDescription mirrors the PerkinElmer-QPI-ImageDescription root
// element that QPTIFF slides carry in their ImageDescription tag, per
// §6: a nested ScanProfile block on the base directory, plus per-channel
// Name/Biomarker/ExposureTime/SignalUnits/Color fields on each channel
// page.
type qpiDescription struct {
	XMLName     xml.Name `xml:"PerkinElmer-QPI-ImageDescription"`
	Name        string   `xml:"Name"`
	Biomarker   string   `xml:"Biomarker"`
	Color       string   `xml:"Color"`
	ExposureTime int64   `xml:"ExposureTime"`
	SignalUnits int      `xml:"SignalUnits"`
	ScanProfile *struct {
		Root *struct {
			PixelSizeMicrons float64 `xml:"PixelSizeMicrons"`
			Magnification    float64 `xml:"Magnification"`
			ObjectiveName    string  `xml:"ObjectiveName"`
		} `xml:"root"`
	} `xml:"ScanProfile"`
}

func parseQPIDescription(raw string) (qpiDescription, bool) {
	var d qpiDescription
	if strings.TrimSpace(raw) == "" {
		return d, false
	}
	if err := xml.Unmarshal([]byte(raw), &d); err != nil {
		return d, false
	}
	return d, true
}

func (d qpiDescription) channelMetadata() slidemodel.ChannelMetadata {
	return slidemodel.ChannelMetadata{
		Name:         d.Name,
		Biomarker:    d.Biomarker,
		Color:        parseColor(d.Color),
		ExposureTime: d.ExposureTime,
		SignalUnits:  d.SignalUnits,
	}
}

// parseColor parses the "R,G,B" form QPTIFF uses for per-channel color.
func parseColor(s string) [3]uint8 {
	parts := strings.Split(s, ",")
	var out [3]uint8
	for i := 0; i < 3 && i < len(parts); i++ {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[i])); err == nil {
			out[i] = uint8(v)
		}
	}
	return out
}

func (d qpiDescription) properties() slidemodel.SlideProperties {
	var props slidemodel.SlideProperties
	if d.ScanProfile != nil && d.ScanProfile.Root != nil {
		root := d.ScanProfile.Root
		props.MicronsPerPixelX = root.PixelSizeMicrons
		props.MicronsPerPixelY = root.PixelSizeMicrons
		props.ObjectiveMagnification = root.Magnification
		props.ObjectiveName = root.ObjectiveName
	}
	return props
}
