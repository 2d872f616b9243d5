// Package tilewriter implements the §4.2 TileWriter facade and its two
// composition strategies: Direct (axis-aligned, non-overlapping tiles)
// and Blended (weighted linear-RGB accumulation with subpixel
// resampling, for MRXS).
package tilewriter

import (
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/threadpool"
)

// Sentinel fallbacks from AnalyzePlan, named from the original
// tile_writer.cpp constants.
const (
	maxPlausibleDimension = 100000
	maxPlausibleChannels  = 1000
)

// Config configures a TileWriter explicitly (entry point 2 of §4.2).
type Config struct {
	Dimensions              slidemodel.ImageDimensions
	Channels                int
	PixelFormat             slidemodel.PixelFormat
	PlanarConfig            slidemodel.PlanarConfig
	Background              slidemodel.Background
	EnableBlending          bool
	EnableSubpixelResampling bool
}

// Strategy is the polymorphic tile-composition backend.
type Strategy interface {
	WriteTile(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int, mu *sync.Mutex) error
	FillWithColor(bg slidemodel.Background) error
	Finalize() error
	Output() ([]byte, error)
	Name() string
}

// Writer is the public facade described in §4.2. Each instance maps to
// one output image and cannot be reused across plans.
type Writer struct {
	cfg        Config
	strategy   Strategy
	mu         sync.Mutex
	pool       *threadpool.Pool
	finalized  bool
	outputTaken bool
}

// FromPlan constructs a Writer from a TilePlan (entry point 1 of §4.2),
// deriving shape from plan.Output and enabling blending iff any
// operation carries blend metadata.
func FromPlan(plan *slidemodel.TilePlan, pool *threadpool.Pool) *Writer {
	cfg := analyzePlan(plan)
	return newWriter(cfg, pool)
}

// analyzePlan implements the exact AnalyzePlan sentinel-fallback logic
// from the original tile_writer.cpp: implausible dimensions/channels are
// replaced with a usable default rather than silently corrupting state.
func analyzePlan(plan *slidemodel.TilePlan) Config {
	dims := plan.Output.Dimensions
	if dims.Width == 0 || dims.Height == 0 || dims.Width > maxPlausibleDimension || dims.Height > maxPlausibleDimension {
		dims = slidemodel.ImageDimensions{Width: 1, Height: 1}
	}
	channels := int(plan.Output.Channels)
	if channels == 0 || channels > maxPlausibleChannels {
		channels = 3
	}

	enableBlending := false
	for _, op := range plan.Operations {
		if op.Blend != nil {
			enableBlending = true
			break
		}
	}

	return Config{
		Dimensions:              dims,
		Channels:                channels,
		PixelFormat:             plan.Output.PixelFormat,
		PlanarConfig:            plan.Output.PlanarConfig,
		Background:              plan.Output.Background,
		EnableBlending:          enableBlending,
		EnableSubpixelResampling: true,
	}
}

// FromConfig constructs a Writer from an explicit Config (entry point 2).
func FromConfig(cfg Config, pool *threadpool.Pool) *Writer {
	return newWriter(cfg, pool)
}

// NewRGB is the convenience 3-channel RGB constructor (entry point 3).
func NewRGB(dims slidemodel.ImageDimensions, background slidemodel.Background, enableBlending bool, pool *threadpool.Pool) *Writer {
	return newWriter(Config{
		Dimensions:              dims,
		Channels:                3,
		PixelFormat:             slidemodel.PixelUInt8,
		PlanarConfig:            slidemodel.PlanarInterleaved,
		Background:              background,
		EnableBlending:          enableBlending,
		EnableSubpixelResampling: true,
	}, pool)
}

func newWriter(cfg Config, pool *threadpool.Pool) *Writer {
	if pool == nil {
		pool = threadpool.Global()
	}
	w := &Writer{cfg: cfg, pool: pool}
	w.strategy = createStrategy(cfg, pool)
	return w
}

func createStrategy(cfg Config, pool *threadpool.Pool) Strategy {
	if cfg.EnableBlending {
		return newBlendedStrategy(cfg, pool)
	}
	return newDirectStrategy(cfg)
}

// WriteTile forwards to the strategy using the writer's internal mutex.
func (w *Writer) WriteTile(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int) error {
	return w.strategy.WriteTile(op, pixels, tileW, tileH, tileChannels, &w.mu)
}

// WriteTileWithMutex forwards to the strategy using a caller-supplied
// mutex, for parallel execution drives; non-blended strategies ignore it.
func (w *Writer) WriteTileWithMutex(op slidemodel.TileReadOp, pixels []byte, tileW, tileH, tileChannels int, external *sync.Mutex) error {
	return w.strategy.WriteTile(op, pixels, tileW, tileH, tileChannels, external)
}

// FillWithColor is available only when no tiles will be written (an
// empty plan); it writes a uniform fill into the output buffer using the
// pixel-kernel fills, dispatched on channel count: 3 -> RGB8, 1 ->
// average-to-gray, 4 -> RGBA8, otherwise Unimplemented.
func (w *Writer) FillWithColor(bg slidemodel.Background) error {
	return w.strategy.FillWithColor(bg)
}

// IsBlendingEnabled reports whether the writer was constructed with
// blending enabled.
func (w *Writer) IsBlendingEnabled() bool { return w.cfg.EnableBlending }

// GetStrategyName returns the active strategy's name.
func (w *Writer) GetStrategyName() string { return w.strategy.Name() }

// Finalize is idempotent; for the blended strategy it performs the
// finalize_linear_to_srgb8 step, for direct it is a no-op.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if err := w.strategy.Finalize(); err != nil {
		return err
	}
	w.finalized = true
	return nil
}

// GetOutput returns the output image bytes. Calling it twice is an
// error.
func (w *Writer) GetOutput() ([]byte, error) {
	if w.outputTaken {
		return nil, slideerr.New("Writer.GetOutput", slideerr.InvalidArgument, "output already taken")
	}
	out, err := w.strategy.Output()
	if err != nil {
		return nil, err
	}
	w.outputTaken = true
	return out, nil
}

// Config returns the writer's resolved configuration (dimensions after
// AnalyzePlan fallback, channel count, etc).
func (w *Writer) Config() Config { return w.cfg }
