package tilewriter

import (
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/pixel"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// directStrategy composes axis-aligned, non-overlapping tiles (SVS/
// Aperio, QPTIFF) by straight rectangular copy into a pre-zeroed output
// buffer. See §4.2.1.
type directStrategy struct {
	cfg    Config
	output []byte // zero-initialized at construction
	stride int    // bytes per output row
}

func newDirectStrategy(cfg Config) *directStrategy {
	stride := int(cfg.Dimensions.Width) * cfg.Channels * bytesPerSample(cfg.PixelFormat)
	return &directStrategy{
		cfg:    cfg,
		output: make([]byte, stride*int(cfg.Dimensions.Height)),
		stride: stride,
	}
}

func bytesPerSample(pf slidemodel.PixelFormat) int {
	switch pf {
	case slidemodel.PixelUInt16:
		return 2
	case slidemodel.PixelFloat32:
		return 4
	default:
		return 1
	}
}

func (d *directStrategy) Name() string { return "direct" }

func (d *directStrategy) WriteTile(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int, _ *sync.Mutex) error {
	dest := op.Transform.Dest
	if dest.X+dest.Width > d.cfg.Dimensions.Width || dest.Y+dest.Height > d.cfg.Dimensions.Height {
		return slideerr.New("directStrategy.WriteTile", slideerr.OutOfRange, "tile destination exceeds output bounds")
	}

	bps := bytesPerSample(d.cfg.PixelFormat)
	src := op.Transform.Source

	if d.cfg.PlanarConfig == slidemodel.PlanarSeparate {
		// tile_coord.x holds the channel index for separated multi-channel
		// formats.
		channel := int(op.TileCoord.X)
		planeStride := int(d.cfg.Dimensions.Width) * bps
		planeSize := planeStride * int(d.cfg.Dimensions.Height)
		if channel < 0 || channel >= d.cfg.Channels {
			return slideerr.New("directStrategy.WriteTile", slideerr.Internal, "channel index out of range")
		}
		plane := d.output[channel*planeSize : (channel+1)*planeSize]
		srcStride := tileW * bps
		pixel.CopyTilePlanar(pixels, srcStride, int(src.X), int(src.Y), plane, planeStride, int(dest.X), int(dest.Y), bps, int(dest.Width), int(dest.Height))
		return nil
	}

	srcStride := tileW * tileChannels * bps
	fastPath := d.cfg.Channels == 3 && tileChannels == 3 && bps == 1 &&
		src.X == 0 && src.Y == 0 && src.Width == uint32(tileW) && src.Height == uint32(tileH)
	if fastPath {
		pixel.CopyRectRGB8Interleaved(pixels, srcStride, 0, 0, d.output, d.stride, int(dest.X), int(dest.Y), int(dest.Width), int(dest.Height))
		return nil
	}
	pixel.CopyRectGeneral(pixels, srcStride, int(src.X), int(src.Y), bps, tileChannels, d.output, d.stride, int(dest.X), int(dest.Y), d.cfg.Channels, int(dest.Width), int(dest.Height))
	return nil
}

func (d *directStrategy) FillWithColor(bg slidemodel.Background) error {
	w, h := int(d.cfg.Dimensions.Width), int(d.cfg.Dimensions.Height)
	switch d.cfg.Channels {
	case 3:
		pixel.FillRGB8(d.output, w, h, bg.R, bg.G, bg.B)
	case 1:
		pixel.FillGray8(d.output, w, h, bg.R, bg.G, bg.B)
	case 4:
		pixel.FillRGBA8(d.output, w, h, bg.R, bg.G, bg.B, bg.A)
	default:
		return slideerr.New("directStrategy.FillWithColor", slideerr.Unimplemented, "unsupported channel count")
	}
	return nil
}

func (d *directStrategy) Finalize() error { return nil }

func (d *directStrategy) Output() ([]byte, error) { return d.output, nil }
