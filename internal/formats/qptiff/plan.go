package qptiff

import (
	"github.com/Grescilla/fastslide-sub001/internal/formats/planutil"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// level is one pyramid resolution: one TIFF directory per channel, all
// sharing the same dimensions and tile grid.
type level struct {
	dims            slidemodel.ImageDimensions
	tileWidth       int
	tileHeight      int
	channelDirIndex []int // directory index per channel, in channel order
}

// buildPlan is the pure QPTIFF plan builder. Unlike SVS/Aperio, the
// output is planar-separate and operations are ordered channel-major:
// every tile of channel 0 precedes every tile of channel 1, each channel
// internally y-major, per §4.4's ordering contract.
func buildPlan(req slidemodel.TileRequest, levels []level, channels []slidemodel.ChannelMetadata, background slidemodel.Background) (*slidemodel.TilePlan, error) {
	if req.Level < 0 || req.Level >= len(levels) {
		return nil, slideerr.New("qptiff.buildPlan", slideerr.InvalidArgument, "level out of range")
	}
	lvl := levels[req.Level]

	selected := req.Channels
	if len(selected) == 0 {
		selected = make([]int, len(lvl.channelDirIndex))
		for i := range selected {
			selected[i] = i
		}
	}

	region := planutil.ResolveRegion(req, lvl.dims)

	plan := &slidemodel.TilePlan{
		Request:      req,
		ActualRegion: region,
		Output: slidemodel.OutputSpec{
			Dimensions:   region.Size,
			Channels:     uint32(len(selected)),
			ChannelIndices: selected,
			PixelFormat:  slidemodel.PixelUInt8,
			PlanarConfig: slidemodel.PlanarSeparate,
			Background:   background,
		},
	}
	if region.Size.Width == 0 || region.Size.Height == 0 {
		return plan, nil
	}

	grid := planutil.TileGrid{TileWidth: lvl.tileWidth, TileHeight: lvl.tileHeight}
	tr := planutil.IntersectingTiles(region, grid)
	tilesAcross := (int(lvl.dims.Width) + lvl.tileWidth - 1) / lvl.tileWidth

	var totalBytes uint64
	for outIdx, channel := range selected {
		if channel < 0 || channel >= len(lvl.channelDirIndex) {
			continue
		}
		dirIndex := lvl.channelDirIndex[channel]
		for ty := tr.FirstY; ty <= tr.LastY; ty++ {
			for tx := tr.FirstX; tx <= tr.LastX; tx++ {
				src, dest, ok := planutil.TileIntersection(region, grid, tx, ty)
				if !ok {
					continue
				}
				flat := ty*tilesAcross + tx
				op := slidemodel.TileReadOp{
					Level:     req.Level,
					TileCoord: slidemodel.ImageCoordinate{X: uint32(outIdx), Y: uint32(flat)},
					Transform: slidemodel.TileTransform{Source: src, Dest: dest, ScaleX: 1, ScaleY: 1},
					SourceID:  uint32(dirIndex),
				}
				plan.Operations = append(plan.Operations, op)
				totalBytes += uint64(src.Width) * uint64(src.Height)
			}
		}
	}

	plan.Cost = slidemodel.PlanCost{
		TotalTiles:       len(plan.Operations),
		TilesToDecode:    len(plan.Operations),
		TotalBytesToRead: totalBytes,
	}
	return plan, nil
}
