// Package slidemodel defines the data model shared by every slide format:
// dimensions, regions, requests, plans, and the metadata describing a
// whole-slide image's pyramid, channels, and scanner properties.
package slidemodel

// ImageDimensions is a (width, height) pair in pixels.
type ImageDimensions struct {
	Width  uint32
	Height uint32
}

// ImageCoordinate is an (x, y) pixel position.
type ImageCoordinate struct {
	X uint32
	Y uint32
}

// RegionSpec describes a rectangular region of a single pyramid level.
type RegionSpec struct {
	TopLeft ImageCoordinate
	Size    ImageDimensions
	Level   int
}

// Valid reports whether the region satisfies size.width > 0, size.height > 0,
// level >= 0.
func (r RegionSpec) Valid() bool {
	return r.Size.Width > 0 && r.Size.Height > 0 && r.Level >= 0
}

// TileRequest extends RegionSpec with optional fractional bounds and a
// channel subset selector.
type TileRequest struct {
	RegionSpec

	// HasFractionalBounds indicates FracX/FracY/FracWidth/FracHeight are set.
	HasFractionalBounds bool
	FracX               float64
	FracY               float64
	FracWidth           float64
	FracHeight          float64

	// Channels is an ordered subset of channel indices; empty means all
	// visible channels.
	Channels []int
}

// Valid reports the TileRequest invariant: fractional bounds, when
// present, must describe a positive-area region.
func (t TileRequest) Valid() bool {
	if !t.RegionSpec.Valid() {
		return false
	}
	if t.HasFractionalBounds {
		return t.FracWidth > 0 && t.FracHeight > 0
	}
	return true
}

// LevelInfo describes one pyramid level.
type LevelInfo struct {
	Dimensions ImageDimensions
	Downsample float64
}

// ChannelMetadata describes one acquisition channel (fluorescence marker,
// brightfield RGB band, etc).
type ChannelMetadata struct {
	Name         string
	Biomarker    string
	Color        [3]uint8
	ExposureTime int64
	SignalUnits  int
}

// SlideBounds is the scan bounding box in level-0 pixels.
type SlideBounds struct {
	X, Y, Width, Height int
}

// SlideProperties carries scanner/acquisition metadata.
type SlideProperties struct {
	MicronsPerPixelX      float64
	MicronsPerPixelY      float64
	ObjectiveMagnification float64
	ObjectiveName         string
	ScannerModel          string
	ScanDate              string // empty means absent
	Bounds                SlideBounds
}

// Format is the pixel organization of a slide.
type Format int

const (
	FormatRGB Format = iota
	FormatRGBA
	FormatGray
	FormatSpectral
)

// SlideDescriptor is the complete, immutable metadata for an open slide.
type SlideDescriptor struct {
	Levels                 []LevelInfo
	Channels               []ChannelMetadata
	Properties             SlideProperties
	Format                 Format
	NativeTileSize         ImageDimensions
	AssociatedImageNames   []string
}

// PlanarConfig describes whether multi-channel samples are interleaved or
// stored as separate planes.
type PlanarConfig int

const (
	PlanarInterleaved PlanarConfig = iota
	PlanarSeparate
)

// PixelFormat is the output sample representation.
type PixelFormat int

const (
	PixelUInt8 PixelFormat = iota
	PixelUInt16
	PixelFloat32
)

// Rect is an axis-aligned pixel rectangle used by TileTransform.
type Rect struct {
	X, Y, Width, Height uint32
}

// TileTransform describes how a tile's pixels map into an output buffer.
type TileTransform struct {
	Source Rect
	Dest   Rect
	ScaleX float64
	ScaleY float64
}

// NeedsScaling reports whether the transform requires resampling.
func (t TileTransform) NeedsScaling() bool {
	return t.ScaleX != 1.0 || t.ScaleY != 1.0
}

// NeedsCropping reports whether source and dest rects differ in size.
func (t TileTransform) NeedsCropping() bool {
	return t.Source.Width != t.Dest.Width || t.Source.Height != t.Dest.Height
}

// BlendMode selects how overlapping tile contributions are composed.
type BlendMode int

const (
	BlendOverwrite BlendMode = iota
	BlendAverage
	BlendMaxIntensity
	BlendMinIntensity
)

// BlendMetadata carries the weighted-composition parameters for formats
// with overlapping or fractionally-placed tiles (MRXS).
type BlendMetadata struct {
	FractionalX              float64
	FractionalY              float64
	Weight                   float64
	Gain                     float32
	Mode                     BlendMode
	EnableSubpixelResampling bool
}

// TileReadOp is one physical tile read, pure metadata with no I/O.
type TileReadOp struct {
	Level      int
	TileCoord  ImageCoordinate // grid indices, not pixels
	Transform  TileTransform
	SourceID   uint32 // TIFF directory index, or MRXS datafile index
	ByteOffset uint64
	ByteSize   uint32
	Priority   int
	Blend      *BlendMetadata // nil for non-blending formats
}

// Background is a per-channel 8-bit fill color, up to 4 channels.
type Background struct {
	R, G, B, A uint8
}

// OutputSpec describes the shape of a plan's output image.
type OutputSpec struct {
	Dimensions          ImageDimensions
	Channels            uint32
	ChannelIndices      []int // subset; empty = identity
	PixelFormat         PixelFormat
	PlanarConfig        PlanarConfig
	ApplyColorCorrection bool
	Background          Background
}

// BytesPerPixel returns the per-pixel stride implied by Channels and
// PixelFormat.
func (o OutputSpec) BytesPerPixel() int {
	bps := 1
	switch o.PixelFormat {
	case PixelUInt16:
		bps = 2
	case PixelFloat32:
		bps = 4
	}
	return int(o.Channels) * bps
}

// TotalBytes returns the byte size of the fully assembled output buffer.
func (o OutputSpec) TotalBytes() int {
	return int(o.Dimensions.Width) * int(o.Dimensions.Height) * o.BytesPerPixel()
}

// PlanCost estimates the work a plan represents.
type PlanCost struct {
	TotalBytesToRead  uint64
	TotalTiles        int
	TilesToDecode     int
	TilesFromCache    int
	EstimatedTimeMs   float64
}

// TilePlan is the pure result of PrepareRequest: what to read and how to
// assemble it, with no I/O performed.
type TilePlan struct {
	Request      TileRequest
	Output       OutputSpec
	Operations   []TileReadOp
	ActualRegion RegionSpec
	Cost         PlanCost
}

// IsEmpty reports whether the plan has no operations.
func (p *TilePlan) IsEmpty() bool { return len(p.Operations) == 0 }

// IsValid reports the minimal validity contract of a plan.
func (p *TilePlan) IsValid() bool {
	return p.ActualRegion.Size.Width > 0 && p.ActualRegion.Size.Height > 0 && !p.IsEmpty()
}

// TileKey identifies a decoded tile within a specific file and level.
type TileKey struct {
	Filename string
	Level    int
	TileX    int
	TileY    int
}

// CachedTileData is the immutable payload stored in the tile cache.
type CachedTileData struct {
	Bytes    []byte
	Size     ImageDimensions
	Channels int
}

// MemoryUsage returns the approximate resident size of this entry.
func (c *CachedTileData) MemoryUsage() uint64 {
	return uint64(len(c.Bytes)) + 32 // small struct overhead allowance
}

// ClampRegion moves top_left inside image_dims and reduces size to fit,
// per §4.6. A region entirely outside the image becomes zero-sized at the
// clamped corner.
func ClampRegion(region RegionSpec, imageDims ImageDimensions) RegionSpec {
	out := region
	if out.TopLeft.X >= imageDims.Width {
		out.TopLeft.X = imageDims.Width
		out.Size.Width = 0
	} else if out.TopLeft.X+out.Size.Width > imageDims.Width {
		out.Size.Width = imageDims.Width - out.TopLeft.X
	}
	if out.TopLeft.Y >= imageDims.Height {
		out.TopLeft.Y = imageDims.Height
		out.Size.Height = 0
	} else if out.TopLeft.Y+out.Size.Height > imageDims.Height {
		out.Size.Height = imageDims.Height - out.TopLeft.Y
	}
	return out
}
