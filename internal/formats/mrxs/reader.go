package mrxs

import (
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/formats/planutil"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// Reader is the MRXS slidemodel.Reader implementation. Unlike the TIFF
// formats it has no single container file to mmap: pixel data lives in a
// handful of sibling Data*.dat files that the Slidedat.ini sidecar maps
// tiles into, so the reader keeps one lazily-opened *os.File per datafile.
type Reader struct {
	mu sync.Mutex

	path string // path to Slidedat.ini
	dir  string // its containing directory, datafile paths are relative to this

	levels         []level
	datafilesByLvl [][]string // per-level list of datafile names, index == SourceID

	openFiles map[string]*os.File // absolute path -> handle

	descriptor slidemodel.SlideDescriptor
	metadata   map[string]string
	cache      slidemodel.TileCache
	visibleCh  []int
}

// Open parses the Slidedat.ini at path and builds a Reader.
func Open(cache slidemodel.TileCache, path string) (slidemodel.Reader, error) {
	sc, err := ParseSidecar(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		path:      path,
		dir:       filepath.Dir(path),
		cache:     cache,
		openFiles: map[string]*os.File{},
		metadata:  map[string]string{},
	}
	r.build(sc)
	return r, nil
}

func (r *Reader) build(sc *Sidecar) {
	levels := make([]level, len(sc.Levels))
	datafiles := make([][]string, len(sc.Levels))
	levelInfos := make([]slidemodel.LevelInfo, len(sc.Levels))

	base := sc.Levels[0]
	for i, ls := range sc.Levels {
		dims := slidemodel.ImageDimensions{Width: uint32(ls.Width), Height: uint32(ls.Height)}
		if dims.Width == 0 || dims.Height == 0 {
			dims = extentFromTiles(ls)
		}
		levels[i] = level{
			dims:       dims,
			tileWidth:  ls.TileWidth,
			tileHeight: ls.TileHeight,
			overlapX:   ls.OverlapX,
			overlapY:   ls.OverlapY,
			tiles:      ls.Tiles,
		}
		datafiles[i] = ls.Datafiles

		downsample := 1.0
		if dims.Width > 0 && base.Width > 0 {
			downsample = float64(base.Width) / float64(dims.Width)
		}
		levelInfos[i] = slidemodel.LevelInfo{Dimensions: dims, Downsample: downsample}
	}

	r.levels = levels
	r.datafilesByLvl = datafiles
	r.descriptor = slidemodel.SlideDescriptor{
		Levels:   levelInfos,
		Format:   slidemodel.FormatRGB,
		NativeTileSize: slidemodel.ImageDimensions{
			Width:  uint32(levels[0].tileWidth),
			Height: uint32(levels[0].tileHeight),
		},
		Properties: slidemodel.SlideProperties{
			MicronsPerPixelX:       sc.MicronsPerPixelX,
			MicronsPerPixelY:       sc.MicronsPerPixelY,
			ObjectiveMagnification: sc.ObjectiveMagnification,
			ScannerModel:           sc.ScannerModel,
		},
	}
}

// extentFromTiles computes a level's pixel extent from its tile grid when
// the sidecar doesn't carry an explicit WIDTH/HEIGHT.
func extentFromTiles(ls LevelSidecar) slidemodel.ImageDimensions {
	sx, sy := ls.TileWidth-ls.OverlapX, ls.TileHeight-ls.OverlapY
	maxX, maxY := 0, 0
	for coord := range ls.Tiles {
		x := coord[0]*sx + ls.TileWidth
		y := coord[1]*sy + ls.TileHeight
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	return slidemodel.ImageDimensions{Width: uint32(maxX), Height: uint32(maxY)}
}

// readTileBytes returns the raw encoded tile bytes for one op, opening the
// backing datafile on first use and keeping the handle for later reads.
func (r *Reader) readTileBytes(levelIdx, datafileIdx int, offset uint64, size uint32) ([]byte, error) {
	if levelIdx < 0 || levelIdx >= len(r.datafilesByLvl) {
		return nil, slideerr.New("mrxs.readTileBytes", slideerr.InvalidArgument, "level out of range")
	}
	names := r.datafilesByLvl[levelIdx]
	if datafileIdx < 0 || datafileIdx >= len(names) {
		return nil, slideerr.New("mrxs.readTileBytes", slideerr.InvalidArgument, "datafile index out of range")
	}

	f, err := r.openDatafile(names[datafileIdx])
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return nil, slideerr.Wrap("mrxs.readTileBytes", slideerr.IoError, "reading tile bytes", err)
	}
	return buf, nil
}

func (r *Reader) openDatafile(name string) (*os.File, error) {
	abs := filepath.Join(r.dir, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.openFiles[abs]; ok {
		return f, nil
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, slideerr.Wrap("mrxs.openDatafile", slideerr.IoError, "opening datafile", err)
	}
	r.openFiles[abs] = f
	return f, nil
}

func (r *Reader) LevelCount() int { return len(r.levels) }

func (r *Reader) LevelInfo(lvl int) (slidemodel.LevelInfo, error) {
	if lvl < 0 || lvl >= len(r.descriptor.Levels) {
		return slidemodel.LevelInfo{}, invalidLevel(lvl, len(r.descriptor.Levels))
	}
	return r.descriptor.Levels[lvl], nil
}

func (r *Reader) Properties() slidemodel.SlideProperties { return r.descriptor.Properties }

func (r *Reader) ChannelMetadata() []slidemodel.ChannelMetadata { return nil }

func (r *Reader) AssociatedImageNames() []string { return nil }

func (r *Reader) AssociatedImageDimensions(name string) (slidemodel.ImageDimensions, error) {
	return slidemodel.ImageDimensions{}, slideerr.New("mrxs.AssociatedImageDimensions", slideerr.NotFound, "no associated image named "+name)
}

func (r *Reader) ReadAssociatedImage(name string) (image.Image, error) {
	return nil, slideerr.New("mrxs.ReadAssociatedImage", slideerr.NotFound, "no associated image named "+name)
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

func (r *Reader) FormatName() string { return "mrxs" }

func (r *Reader) Metadata() map[string]string { return r.metadata }

func (r *Reader) Quickhash() ([32]byte, error) {
	return [32]byte{}, slideerr.New("mrxs.Quickhash", slideerr.Unimplemented, "quickhash not implemented")
}

func (r *Reader) PrepareRequest(req slidemodel.TileRequest) (*slidemodel.TilePlan, error) {
	if !req.Valid() {
		return nil, slideerr.New("mrxs.PrepareRequest", slideerr.InvalidArgument, "invalid tile request")
	}
	return buildPlan(req, r.levels, slidemodel.Background{R: 255, G: 255, B: 255, A: 255})
}

func (r *Reader) ExecutePlan(plan *slidemodel.TilePlan, w slidemodel.Writer) error {
	return executePlan(plan, r, w)
}

func (r *Reader) ReadRegion(region slidemodel.RegionSpec) (image.Image, error) {
	return planutil.ReadRegionPipeline(r, region)
}

func (r *Reader) SetVisibleChannels(indices []int) { r.visibleCh = indices }

func (r *Reader) ShowAllChannels() { r.visibleCh = nil }

func (r *Reader) SetCache(cache slidemodel.TileCache) { r.cache = cache }

func (r *Reader) GetCache() slidemodel.TileCache { return r.cache }

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, f := range r.openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
