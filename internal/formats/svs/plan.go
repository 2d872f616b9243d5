package svs

import (
	"github.com/Grescilla/fastslide-sub001/internal/formats/planutil"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tiff"
)

// level describes one pyramid directory: its TIFF directory index and the
// tile/strip grid the plan builder needs.
type level struct {
	directoryIndex int
	dims           slidemodel.ImageDimensions
	tileWidth      int
	tileHeight     int // for stripped directories this is rows_per_strip
	tiled          bool
	samplesPerPixel int
}

// buildPlan is the pure Aperio/SVS plan builder, implementing §4.4's
// common contract with axis-aligned, non-overlapping tiles (no blend
// metadata).
func buildPlan(req slidemodel.TileRequest, levels []level, background slidemodel.Background) (*slidemodel.TilePlan, error) {
	if req.Level < 0 || req.Level >= len(levels) {
		return nil, invalidLevel(req.Level, len(levels))
	}
	lvl := levels[req.Level]

	region := planutil.ResolveRegion(req, lvl.dims)

	plan := &slidemodel.TilePlan{
		Request:      req,
		ActualRegion: region,
		Output: slidemodel.OutputSpec{
			Dimensions:  region.Size,
			Channels:    uint32(lvl.samplesPerPixel),
			PixelFormat: slidemodel.PixelUInt8,
			PlanarConfig: slidemodel.PlanarInterleaved,
			Background:  background,
		},
	}
	if region.Size.Width == 0 || region.Size.Height == 0 {
		return plan, nil
	}

	grid := planutil.TileGrid{TileWidth: lvl.tileWidth, TileHeight: lvl.tileHeight}
	tr := planutil.IntersectingTiles(region, grid)

	var totalBytes uint64
	for ty := tr.FirstY; ty <= tr.LastY; ty++ {
		for tx := tr.FirstX; tx <= tr.LastX; tx++ {
			src, dest, ok := planutil.TileIntersection(region, grid, tx, ty)
			if !ok {
				continue
			}
			op := slidemodel.TileReadOp{
				Level:     req.Level,
				TileCoord: slidemodel.ImageCoordinate{X: uint32(tx), Y: uint32(ty)},
				Transform: slidemodel.TileTransform{Source: src, Dest: dest, ScaleX: 1, ScaleY: 1},
				SourceID:  uint32(lvl.directoryIndex),
			}
			plan.Operations = append(plan.Operations, op)
			totalBytes += uint64(src.Width) * uint64(src.Height) * uint64(lvl.samplesPerPixel)
		}
	}

	plan.Cost = slidemodel.PlanCost{
		TotalTiles:       len(plan.Operations),
		TilesToDecode:    len(plan.Operations),
		TotalBytesToRead: totalBytes,
	}
	return plan, nil
}

// levelFromIFD derives a plan-builder level descriptor from a parsed TIFF
// directory.
func levelFromIFD(directoryIndex int, ifd *tiff.IFD) level {
	tw, th := int(ifd.TileWidth), int(ifd.TileHeight)
	tiled := ifd.IsTiled()
	if !tiled {
		tw = int(ifd.Width)
		th = int(ifd.RowsPerStrip)
		if th == 0 {
			th = int(ifd.Height)
		}
	}
	spp := int(ifd.SamplesPerPixel)
	if spp == 0 {
		spp = 3
	}
	return level{
		directoryIndex:  directoryIndex,
		dims:            slidemodel.ImageDimensions{Width: ifd.Width, Height: ifd.Height},
		tileWidth:       tw,
		tileHeight:      th,
		tiled:           tiled,
		samplesPerPixel: spp,
	}
}
