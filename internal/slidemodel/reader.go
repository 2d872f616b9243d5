package slidemodel

import "image"

// TileCache is the narrow view of the tile cache that a format reader
// needs; defined here (rather than imported from internal/tilecache) to
// keep this package free of a dependency on the cache implementation.
type TileCache interface {
	Get(key TileKey) (*CachedTileData, bool)
	Put(key TileKey, data *CachedTileData)
}

// Writer is the narrow view of a tile writer that a format executor
// drives; defined here to avoid a dependency on internal/tilewriter.
type Writer interface {
	WriteTile(op TileReadOp, pixels []byte, tileW, tileH, tileChannels int) error
	FillWithColor(bg Background) error
}

// Reader is the abstract per-format slide reader contract of §4.6. Every
// supported format (MRXS, SVS/Aperio, QPTIFF) implements this interface.
type Reader interface {
	LevelCount() int
	LevelInfo(level int) (LevelInfo, error)
	Properties() SlideProperties
	ChannelMetadata() []ChannelMetadata
	AssociatedImageNames() []string
	AssociatedImageDimensions(name string) (ImageDimensions, error)
	ReadAssociatedImage(name string) (image.Image, error)

	BestLevelForDownsample(d float64) int
	TileSize() ImageDimensions

	FormatName() string
	Metadata() map[string]string
	Quickhash() ([32]byte, error)

	PrepareRequest(req TileRequest) (*TilePlan, error)
	ExecutePlan(plan *TilePlan, w Writer) error
	ReadRegion(region RegionSpec) (image.Image, error)

	SetVisibleChannels(indices []int)
	ShowAllChannels()
	SetCache(cache TileCache)
	GetCache() TileCache

	Close() error
}

// BestLevelForDownsample implements the §4.6 linear scan with ties broken
// by lowest index, shared by every format reader.
func BestLevelForDownsample(levels []LevelInfo, d float64) int {
	if d <= 1.0 || len(levels) == 0 {
		return 0
	}
	best := 0
	bestDiff := -1.0
	for i, lvl := range levels {
		diff := lvl.Downsample - d
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}
