package tilewriter

import (
	"math"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/pixel"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/threadpool"
)

// subpixelMinDim is the §9 OQ3 threshold (2*kernel_radius) below which
// subpixel resampling is skipped even if requested.
const subpixelMinDim = 2 * pixel.MksRadius

// gainEpsilon and fracEpsilon mirror the spec's "skip when negligible"
// thresholds.
const (
	gainEpsilon = 1e-4
	fracEpsilon = 1e-12
)

// blendedStrategy composes overlapping, fractionally-placed, gain
// corrected tiles (MRXS) via weighted linear-RGB accumulation. See
// §4.2.2.
type blendedStrategy struct {
	cfg  Config
	pool *threadpool.Pool

	w, h int
	accR []float32
	accG []float32
	accB []float32
	wSum []float32

	finalOutput []byte
}

func newBlendedStrategy(cfg Config, pool *threadpool.Pool) *blendedStrategy {
	w, h := int(cfg.Dimensions.Width), int(cfg.Dimensions.Height)
	n := w*h + pixel.SIMDPad
	return &blendedStrategy{
		cfg:  cfg,
		pool: pool,
		w:    w,
		h:    h,
		accR: make([]float32, n),
		accG: make([]float32, n),
		accB: make([]float32, n),
		wSum: make([]float32, n),
	}
}

func (b *blendedStrategy) Name() string { return "blended" }

func (b *blendedStrategy) WriteTile(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int, mu *sync.Mutex) error {
	// Multi-channel non-RGB inputs bypass blending entirely.
	if tileChannels != 3 {
		return b.writeNonRGB(op, pixels, tileW, tileH, tileChannels)
	}

	blend := op.Blend
	if blend == nil {
		blend = &slidemodel.BlendMetadata{Weight: 1.0, Gain: 1.0, EnableSubpixelResampling: true}
	}

	plane := tileW * tileH
	scratch := make([]float32, 3*plane+pixel.SIMDPad)
	pixel.Srgb8ToLinearPlanar(pixels, tileW, tileH, scratch)

	if math.Abs(float64(blend.Gain)-1.0) > gainEpsilon {
		pixel.GainCorrectionLinearPlanar(scratch, plane, blend.Gain)
	}

	source := scratch
	if blend.EnableSubpixelResampling &&
		(math.Abs(blend.FractionalX) > fracEpsilon || math.Abs(blend.FractionalY) > fracEpsilon) &&
		tileW >= subpixelMinDim && tileH >= subpixelMinDim {
		resampled := make([]float32, 3*plane+pixel.SIMDPad)
		pixel.ResampleTileSubpixel(scratch, tileW, tileH, blend.FractionalX, blend.FractionalY, resampled)
		source = resampled
	}

	if mu == nil {
		mu = &sync.Mutex{}
	}
	baseX, baseY := int(op.Transform.Dest.X), int(op.Transform.Dest.Y)
	pixel.AccumulateLinearTile(source, tileW, tileH, baseX, baseY, blend.Weight, b.accR, b.accG, b.accB, b.wSum, b.w, b.h, mu)
	return nil
}

// writeNonRGB handles spectral/grayscale tiles that do not participate in
// colorimetric composition; it copies directly into a lazily-created
// pass-through output buffer so the API remains uniform.
func (b *blendedStrategy) writeNonRGB(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int) error {
	if b.finalOutput == nil {
		stride := b.w * b.cfg.Channels
		b.finalOutput = make([]byte, stride*b.h)
	}
	dest := op.Transform.Dest
	if dest.X+dest.Width > uint32(b.w) || dest.Y+dest.Height > uint32(b.h) {
		return slideerr.New("blendedStrategy.WriteTile", slideerr.OutOfRange, "tile destination exceeds output bounds")
	}
	src := op.Transform.Source
	srcStride := tileW * tileChannels
	dstStride := b.w * b.cfg.Channels
	pixel.CopyRectGeneral(pixels, srcStride, int(src.X), int(src.Y), 1, tileChannels, b.finalOutput, dstStride, int(dest.X), int(dest.Y), b.cfg.Channels, int(dest.Width), int(dest.Height))
	return nil
}

func (b *blendedStrategy) FillWithColor(bg slidemodel.Background) error {
	w, h := b.w, b.h
	switch b.cfg.Channels {
	case 3:
		out := make([]byte, w*h*3)
		pixel.FillRGB8(out, w, h, bg.R, bg.G, bg.B)
		b.finalOutput = out
	case 1:
		out := make([]byte, w*h)
		pixel.FillGray8(out, w, h, bg.R, bg.G, bg.B)
		b.finalOutput = out
	case 4:
		out := make([]byte, w*h*4)
		pixel.FillRGBA8(out, w, h, bg.R, bg.G, bg.B, bg.A)
		b.finalOutput = out
	default:
		return slideerr.New("blendedStrategy.FillWithColor", slideerr.Unimplemented, "unsupported channel count")
	}
	return nil
}

func (b *blendedStrategy) Finalize() error {
	if b.finalOutput != nil {
		// Non-RGB pass-through path or an explicit fill already populated
		// the output; nothing to accumulate.
		return nil
	}
	out := make([]byte, b.w*b.h*3)
	batch := b.pool.NewBatch()
	pixel.FinalizeLinearToSrgb8(b.accR, b.accG, b.accB, b.wSum, b.w, b.h, out, batch.Submit)
	batch.Wait()
	b.finalOutput = out
	return nil
}

func (b *blendedStrategy) Output() ([]byte, error) {
	if b.finalOutput == nil {
		return nil, slideerr.New("blendedStrategy.Output", slideerr.Internal, "Finalize was not called")
	}
	return b.finalOutput, nil
}
