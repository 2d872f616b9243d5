package mrxs

import (
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// level is the plan builder's view of one pyramid level: a grid of
// possibly-overlapping, fractionally-placed tiles plus the stride
// geometry needed to find a tile's neighbors.
type level struct {
	dims       slidemodel.ImageDimensions
	tileWidth  int
	tileHeight int
	overlapX   int
	overlapY   int
	tiles      map[[2]int]TileRecord
}

// strideX/strideY are the pixel distance between adjacent tile origins,
// i.e. the tile size minus its overlap with the next tile.
func (l level) strideX() int { return l.tileWidth - l.overlapX }
func (l level) strideY() int { return l.tileHeight - l.overlapY }

// origin returns tile (tx,ty)'s top-left corner in level-0-relative
// pixels.
func (l level) origin(tx, ty int) (int, int) {
	return tx * l.strideX(), ty * l.strideY()
}

// buildPlan is the MRXS plan builder. Unlike the axis-aligned TIFF
// formats, tiles here overlap by design, so each op carries BlendMetadata
// (fractional placement, gain, and a weight inversely proportional to how
// many neighboring tiles cover the same region) and the writer composes
// them with the blended strategy rather than direct copy.
func buildPlan(req slidemodel.TileRequest, levels []level, background slidemodel.Background) (*slidemodel.TilePlan, error) {
	if req.Level < 0 || req.Level >= len(levels) {
		return nil, invalidLevel(req.Level, len(levels))
	}
	lvl := levels[req.Level]

	region := slidemodel.ClampRegion(req.RegionSpec, lvl.dims)

	plan := &slidemodel.TilePlan{
		Request:      req,
		ActualRegion: region,
		Output: slidemodel.OutputSpec{
			Dimensions:           region.Size,
			Channels:             3,
			PixelFormat:          slidemodel.PixelUInt8,
			PlanarConfig:         slidemodel.PlanarInterleaved,
			ApplyColorCorrection: true,
			Background:           background,
		},
	}
	if region.Size.Width == 0 || region.Size.Height == 0 {
		return plan, nil
	}

	regionX0, regionY0 := int(region.TopLeft.X), int(region.TopLeft.Y)
	regionX1, regionY1 := regionX0+int(region.Size.Width), regionY0+int(region.Size.Height)

	sx, sy := lvl.strideX(), lvl.strideY()
	if sx <= 0 || sy <= 0 {
		return plan, nil
	}

	// Tiles whose origin could possibly intersect the region: walk back one
	// tile beyond the naive division since tiles extend tileWidth/tileHeight
	// past their origin, which can exceed the stride when tiles overlap.
	firstTX := max(0, (regionX0-lvl.tileWidth)/sx)
	firstTY := max(0, (regionY0-lvl.tileHeight)/sy)
	lastTX := (regionX1 - 1) / sx
	lastTY := (regionY1 - 1) / sy

	var totalBytes uint64
	for ty := firstTY; ty <= lastTY; ty++ {
		for tx := firstTX; tx <= lastTX; tx++ {
			rec, ok := lvl.tiles[[2]int{tx, ty}]
			if !ok {
				continue
			}
			ox, oy := lvl.origin(tx, ty)
			ix0, iy0 := max(ox, regionX0), max(oy, regionY0)
			ix1, iy1 := min(ox+lvl.tileWidth, regionX1), min(oy+lvl.tileHeight, regionY1)
			if ix0 >= ix1 || iy0 >= iy1 {
				continue
			}

			src := slidemodel.Rect{X: uint32(ix0 - ox), Y: uint32(iy0 - oy), Width: uint32(ix1 - ix0), Height: uint32(iy1 - iy0)}
			dest := slidemodel.Rect{X: uint32(ix0 - regionX0), Y: uint32(iy0 - regionY0), Width: uint32(ix1 - ix0), Height: uint32(iy1 - iy0)}

			weight := 1.0 / float64(overlapMultiplicity(lvl, tx, ty))

			op := slidemodel.TileReadOp{
				Level:      req.Level,
				TileCoord:  slidemodel.ImageCoordinate{X: uint32(tx), Y: uint32(ty)},
				Transform:  slidemodel.TileTransform{Source: src, Dest: dest, ScaleX: 1, ScaleY: 1},
				SourceID:   uint32(rec.DatafileIndex),
				ByteOffset: rec.ByteOffset,
				ByteSize:   rec.ByteSize,
				Blend: &slidemodel.BlendMetadata{
					FractionalX:              rec.FractionalX,
					FractionalY:              rec.FractionalY,
					Weight:                   weight,
					Gain:                     rec.Gain,
					Mode:                     slidemodel.BlendAverage,
					EnableSubpixelResampling: true,
				},
			}
			plan.Operations = append(plan.Operations, op)
			totalBytes += uint64(rec.ByteSize)
		}
	}

	plan.Cost = slidemodel.PlanCost{
		TotalTiles:       len(plan.Operations),
		TilesToDecode:    len(plan.Operations),
		TotalBytesToRead: totalBytes,
	}
	return plan, nil
}

// overlapMultiplicity approximates how many stitched tiles contribute to
// tile (tx,ty)'s footprint: itself plus whichever of its left, top, and
// top-left neighbors exist and actually overlap it given the level's
// configured overlap margins. This is a per-tile scalar weight, not a
// per-pixel one; the corner where all four tiles overlap is therefore
// blended a little more coarsely than an exact coverage map would, a
// tradeoff accepted for a single Weight field per op.
func overlapMultiplicity(lvl level, tx, ty int) int {
	n := 1
	hasLeft := lvl.overlapX > 0
	hasTop := lvl.overlapY > 0
	if hasLeft {
		if _, ok := lvl.tiles[[2]int{tx - 1, ty}]; ok {
			n++
		}
	}
	if hasTop {
		if _, ok := lvl.tiles[[2]int{tx, ty - 1}]; ok {
			n++
		}
	}
	if hasLeft && hasTop {
		if _, ok := lvl.tiles[[2]int{tx - 1, ty - 1}]; ok {
			n++
		}
	}
	return n
}
