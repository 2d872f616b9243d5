package registry

import (
	"github.com/Grescilla/fastslide-sub001/internal/formats/mrxs"
	"github.com/Grescilla/fastslide-sub001/internal/formats/qptiff"
	"github.com/Grescilla/fastslide-sub001/internal/formats/svs"
)

// builtinDescriptors lists the three compiled-in slide formats, per §4.7
// and §6.
func builtinDescriptors() []FormatDescriptor {
	return []FormatDescriptor{
		{
			PrimaryExtension:     ".mrxs",
			FormatName:           "mrxs",
			Capabilities:         CapTiled | CapPyramidal | CapRandomAccess,
			Version:              "1.0",
			RequiredCapabilities: []string{"jpeg"},
			Factory:              mrxs.Open,
		},
		{
			PrimaryExtension:     ".svs",
			Aliases:              []string{".tif"},
			FormatName:           "aperio",
			Capabilities:         CapTiled | CapPyramidal | CapAssociatedImages | CapLabelLayers | CapCompressed | CapRandomAccess,
			Version:              "1.0",
			RequiredCapabilities: []string{"jpeg"},
			Factory:              svs.Open,
		},
		{
			PrimaryExtension:     ".qptiff",
			Aliases:              []string{".qtiff"},
			FormatName:           "qptiff",
			Capabilities:         CapTiled | CapPyramidal | CapSpectral | CapCompressed | CapRandomAccess,
			Version:              "1.0",
			RequiredCapabilities: []string{"jpeg"},
			Factory:              qptiff.Open,
		},
	}
}
