// Package qptiff implements the PerkinElmer QPTIFF spectral slide
// format: a pyramidal TIFF where each resolution level is stored as one
// directory per acquisition channel, with per-channel XML metadata in
// ImageDescription.
package qptiff

import (
	"image"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/formats/planutil"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tiff"
)

// Reader is the QPTIFF slidemodel.Reader implementation.
type Reader struct {
	mu sync.Mutex

	path   string
	handle *tiff.Reader

	levels     []level
	descriptor slidemodel.SlideDescriptor
	metadata   map[string]string
	cache      slidemodel.TileCache
	visibleCh  []int
}

// Open builds a Reader from path.
func Open(cache slidemodel.TileCache, path string) (slidemodel.Reader, error) {
	h, err := tiff.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{path: path, handle: h, cache: cache}
	if err := r.build(); err != nil {
		h.Close()
		return nil, err
	}
	return r, nil
}

// build groups directories into pyramid levels by dimensions: QPTIFF
// emits every channel of one resolution consecutively, so a run of
// same-sized directories is one level's channel set.
func (r *Reader) build() error {
	var levels []level
	var channels []slidemodel.ChannelMetadata
	var props slidemodel.SlideProperties
	haveProps := false

	var cur *level
	var curDims slidemodel.ImageDimensions

	for i := 0; i < r.handle.DirectoryCount(); i++ {
		ifd, err := r.handle.Directory(i)
		if err != nil {
			return err
		}
		dims := slidemodel.ImageDimensions{Width: ifd.Width, Height: ifd.Height}

		if cur == nil || dims != curDims {
			if cur != nil {
				levels = append(levels, *cur)
			}
			tw, th := int(ifd.TileWidth), int(ifd.TileHeight)
			if !ifd.IsTiled() {
				tw = int(ifd.Width)
				th = int(ifd.RowsPerStrip)
				if th == 0 {
					th = int(ifd.Height)
				}
			}
			cur = &level{dims: dims, tileWidth: tw, tileHeight: th}
			curDims = dims
		}
		cur.channelDirIndex = append(cur.channelDirIndex, i)

		if desc, ok := parseQPIDescription(ifd.ImageDescription); ok {
			if len(levels) == 0 {
				channels = append(channels, desc.channelMetadata())
			}
			if !haveProps {
				props = desc.properties()
				haveProps = true
			}
		}
	}
	if cur != nil {
		levels = append(levels, *cur)
	}
	if len(levels) == 0 {
		return slideerr.New("qptiff.build", slideerr.InvalidArgument, "no pyramid levels found")
	}

	base := levels[0]
	levelInfos := make([]slidemodel.LevelInfo, len(levels))
	for i, lvl := range levels {
		downsample := 1.0
		if lvl.dims.Width > 0 {
			downsample = float64(base.dims.Width) / float64(lvl.dims.Width)
		}
		levelInfos[i] = slidemodel.LevelInfo{Dimensions: lvl.dims, Downsample: downsample}
	}

	r.levels = levels
	r.descriptor = slidemodel.SlideDescriptor{
		Levels:         levelInfos,
		Channels:       channels,
		Properties:     props,
		Format:         slidemodel.FormatSpectral,
		NativeTileSize: slidemodel.ImageDimensions{Width: uint32(base.tileWidth), Height: uint32(base.tileHeight)},
	}
	r.metadata = map[string]string{}
	return nil
}

func (r *Reader) LevelCount() int { return len(r.levels) }

func (r *Reader) LevelInfo(level int) (slidemodel.LevelInfo, error) {
	if level < 0 || level >= len(r.descriptor.Levels) {
		return slidemodel.LevelInfo{}, slideerr.New("qptiff.LevelInfo", slideerr.InvalidArgument, "level out of range")
	}
	return r.descriptor.Levels[level], nil
}

func (r *Reader) Properties() slidemodel.SlideProperties { return r.descriptor.Properties }

func (r *Reader) ChannelMetadata() []slidemodel.ChannelMetadata { return r.descriptor.Channels }

func (r *Reader) AssociatedImageNames() []string { return nil }

func (r *Reader) AssociatedImageDimensions(name string) (slidemodel.ImageDimensions, error) {
	return slidemodel.ImageDimensions{}, slideerr.New("qptiff.AssociatedImageDimensions", slideerr.NotFound, "no associated image named "+name)
}

func (r *Reader) ReadAssociatedImage(name string) (image.Image, error) {
	return nil, slideerr.New("qptiff.ReadAssociatedImage", slideerr.NotFound, "no associated image named "+name)
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

func (r *Reader) FormatName() string { return "qptiff" }

func (r *Reader) Metadata() map[string]string { return r.metadata }

func (r *Reader) Quickhash() ([32]byte, error) {
	return [32]byte{}, slideerr.New("qptiff.Quickhash", slideerr.Unimplemented, "quickhash not implemented")
}

func (r *Reader) PrepareRequest(req slidemodel.TileRequest) (*slidemodel.TilePlan, error) {
	if !req.Valid() {
		return nil, slideerr.New("qptiff.PrepareRequest", slideerr.InvalidArgument, "invalid tile request")
	}
	channels := req.Channels
	if len(channels) == 0 {
		channels = r.visibleCh
	}
	req.Channels = channels
	return buildPlan(req, r.levels, r.descriptor.Channels, slidemodel.Background{})
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
