// Package svs implements the Aperio/SVS slide format: a pyramidal,
// tiled (or base-level-stripped) TIFF with vendor metadata packed into
// the ImageDescription tag as a pipe-delimited "key = value" string.
package svs

import (
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/formats/planutil"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tiff"
)

// Reader is the Aperio/SVS slidemodel.Reader implementation.
type Reader struct {
	mu sync.Mutex

	path   string
	handle *tiff.Reader

	levels      []level
	descriptor  slidemodel.SlideDescriptor
	metadata    map[string]string
	cache       slidemodel.TileCache
	visibleCh   []int

	associated map[string]int // name -> directory index
}

// Open builds a Reader from path, matching the registry Factory shape.
func Open(cache slidemodel.TileCache, path string) (slidemodel.Reader, error) {
	h, err := tiff.Open(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{path: path, handle: h, cache: cache, associated: map[string]int{}}
	if err := r.build(); err != nil {
		h.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) build() error {
	var pyramidLevels []level
	metadata := map[string]string{}

	for i := 0; i < r.handle.DirectoryCount(); i++ {
		ifd, err := r.handle.Directory(i)
		if err != nil {
			return err
		}
		name := associatedImageName(ifd)
		if name != "" {
			r.associated[name] = i
			continue
		}
		pyramidLevels = append(pyramidLevels, levelFromIFD(i, ifd))
		if i == 0 && ifd.ImageDescription != "" {
			metadata = parseAperioDescription(ifd.ImageDescription)
		}
	}

	if len(pyramidLevels) == 0 {
		return slideerr.New("svs.build", slideerr.InvalidArgument, "no pyramid levels found")
	}

	base := pyramidLevels[0]
	levelInfos := make([]slidemodel.LevelInfo, len(pyramidLevels))
	for i, lvl := range pyramidLevels {
		downsample := 1.0
		if lvl.dims.Width > 0 {
			downsample = float64(base.dims.Width) / float64(lvl.dims.Width)
		}
		levelInfos[i] = slidemodel.LevelInfo{Dimensions: lvl.dims, Downsample: downsample}
	}

	names := make([]string, 0, len(r.associated))
	for n := range r.associated {
		names = append(names, n)
	}

	r.levels = pyramidLevels
	r.metadata = metadata
	r.descriptor = slidemodel.SlideDescriptor{
		Levels:               levelInfos,
		Channels:             nil,
		Properties:           propertiesFromMetadata(metadata),
		Format:               slidemodel.FormatRGB,
		NativeTileSize:       slidemodel.ImageDimensions{Width: uint32(base.tileWidth), Height: uint32(base.tileHeight)},
		AssociatedImageNames: names,
	}
	return nil
}

// associatedImageName recognizes Aperio's convention of storing label and
// thumbnail images as extra directories whose ImageDescription contains
// a recognizable marker ("label", "macro" or "thumbnail", matched
// case-insensitively anywhere in the text).
func associatedImageName(ifd *tiff.IFD) string {
	desc := strings.ToLower(ifd.ImageDescription)
	switch {
	case strings.Contains(desc, "label"):
		return "label"
	case strings.Contains(desc, "macro"):
		return "macro"
	case strings.Contains(desc, "thumbnail"):
		return "thumbnail"
	default:
		return ""
	}
}

// parseAperioDescription parses the pipe-delimited "key = value" fields
// that follow the first line of an Aperio ImageDescription, e.g.
// "Aperio Image Library v...|AppMag = 20|MPP = 0.5021|...".
func parseAperioDescription(desc string) map[string]string {
	out := map[string]string{}
	parts := strings.Split(desc, "|")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

func propertiesFromMetadata(m map[string]string) slidemodel.SlideProperties {
	props := slidemodel.SlideProperties{}
	if mpp, err := strconv.ParseFloat(m["MPP"], 64); err == nil {
		props.MicronsPerPixelX = mpp
		props.MicronsPerPixelY = mpp
	}
	if mag, err := strconv.ParseFloat(m["AppMag"], 64); err == nil {
		props.ObjectiveMagnification = mag
	}
	props.ScannerModel = m["ScanScope ID"]
	props.ScanDate = m["Date"]
	return props
}

func (r *Reader) LevelCount() int { return len(r.levels) }

func (r *Reader) LevelInfo(level int) (slidemodel.LevelInfo, error) {
	if level < 0 || level >= len(r.descriptor.Levels) {
		return slidemodel.LevelInfo{}, invalidLevel(level, len(r.descriptor.Levels))
	}
	return r.descriptor.Levels[level], nil
}

func (r *Reader) Properties() slidemodel.SlideProperties { return r.descriptor.Properties }

func (r *Reader) ChannelMetadata() []slidemodel.ChannelMetadata { return nil }

func (r *Reader) AssociatedImageNames() []string { return r.descriptor.AssociatedImageNames }

func (r *Reader) AssociatedImageDimensions(name string) (slidemodel.ImageDimensions, error) {
	idx, ok := r.associated[name]
	if !ok {
		return slidemodel.ImageDimensions{}, slideerr.New("svs.AssociatedImageDimensions", slideerr.NotFound, "no associated image named "+name)
	}
	ifd, err := r.handle.Directory(idx)
	if err != nil {
		return slidemodel.ImageDimensions{}, err
	}
	return slidemodel.ImageDimensions{Width: ifd.Width, Height: ifd.Height}, nil
}

func (r *Reader) ReadAssociatedImage(name string) (image.Image, error) {
	idx, ok := r.associated[name]
	if !ok {
		return nil, slideerr.New("svs.ReadAssociatedImage", slideerr.NotFound, "no associated image named "+name)
	}
	if _, err := r.handle.Directory(idx); err != nil {
		return nil, err
	}
	pixels, w, h, channels, err := r.handle.DecodeTile(idx, 0, 0)
	if err != nil {
		return nil, err
	}
	if pixels == nil {
		pixels = make([]byte, w*h*channels)
	}
	return rgb8ToImage(pixels, w, h, channels), nil
}

func rgb8ToImage(pixels []byte, w, h, channels int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * channels
			i := img.PixOffset(x, y)
			img.Pix[i+3] = 255
			if channels >= 3 {
				img.Pix[i+0] = pixels[o+0]
				img.Pix[i+1] = pixels[o+1]
				img.Pix[i+2] = pixels[o+2]
			} else {
				img.Pix[i+0] = pixels[o]
				img.Pix[i+1] = pixels[o]
				img.Pix[i+2] = pixels[o]
			}
		}
	}
	return img
}

func (r *Reader) BestLevelForDownsample(d float64) int {
	return slidemodel.BestLevelForDownsample(r.descriptor.Levels, d)
}

func (r *Reader) TileSize() slidemodel.ImageDimensions {
	if r.descriptor.NativeTileSize.Width == 0 {
		return slidemodel.ImageDimensions{Width: 512, Height: 512}
	}
	return r.descriptor.NativeTileSize
}

func (r *Reader) FormatName() string { return "aperio" }

func (r *Reader) Metadata() map[string]string { return r.metadata }

func (r *Reader) Quickhash() ([32]byte, error) {
	return [32]byte{}, slideerr.New("svs.Quickhash", slideerr.Unimplemented, "quickhash not implemented")
}

func (r *Reader) PrepareRequest(req slidemodel.TileRequest) (*slidemodel.TilePlan, error) {
	if !req.Valid() {
		return nil, slideerr.New("svs.PrepareRequest", slideerr.InvalidArgument, "invalid tile request")
	}
	return buildPlan(req, r.levels, slidemodel.Background{A: 255})
}

func (r *Reader) ExecutePlan(plan *slidemodel.TilePlan, w slidemodel.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return executePlan(plan, r.handle, r.cache, r.path, w)
}

func (r *Reader) ReadRegion(region slidemodel.RegionSpec) (image.Image, error) {
	return planutil.ReadRegionPipeline(r, region)
}

func (r *Reader) SetVisibleChannels(indices []int) { r.visibleCh = indices }

func (r *Reader) ShowAllChannels() { r.visibleCh = nil }

func (r *Reader) SetCache(cache slidemodel.TileCache) { r.cache = cache }

func (r *Reader) GetCache() slidemodel.TileCache { return r.cache }

func (r *Reader) Close() error { return r.handle.Close() }
