// Package planutil implements the tile-grid intersection arithmetic that
// §4.4 describes as the common contract shared by every format's plan
// builder: determining the concrete region, clamping it, finding the
// intersecting tile indices, and slicing per-tile source/dest rectangles.
package planutil

import "github.com/Grescilla/fastslide-sub001/internal/slidemodel"

// ResolveRegion implements steps 2-4 of §4.4: use the request's region if
// present, else the full level, then clamp to level bounds.
func ResolveRegion(req slidemodel.TileRequest, levelDims slidemodel.ImageDimensions) slidemodel.RegionSpec {
	region := req.RegionSpec
	if region.Size.Width == 0 && region.Size.Height == 0 {
		region = slidemodel.RegionSpec{
			TopLeft: slidemodel.ImageCoordinate{X: 0, Y: 0},
			Size:    levelDims,
			Level:   req.Level,
		}
	}
	return slidemodel.ClampRegion(region, levelDims)
}

// TileGrid describes a format's native tiling of one level.
type TileGrid struct {
	TileWidth  int
	TileHeight int
}

// TileRange is the inclusive range of tile indices intersecting a region.
type TileRange struct {
	FirstX, LastX int
	FirstY, LastY int
}

// IntersectingTiles implements step 6 of §4.4.
func IntersectingTiles(region slidemodel.RegionSpec, grid TileGrid) TileRange {
	x0 := int(region.TopLeft.X)
	y0 := int(region.TopLeft.Y)
	x1 := x0 + int(region.Size.Width) - 1
	y1 := y0 + int(region.Size.Height) - 1

	return TileRange{
		FirstX: x0 / grid.TileWidth,
		LastX:  x1 / grid.TileWidth,
		FirstY: y0 / grid.TileHeight,
		LastY:  y1 / grid.TileHeight,
	}
}

// TileIntersection computes, for a single tile at grid indices (tx,ty),
// the source rectangle (tile-local) and dest rectangle (output-local)
// that the region intersects, implementing step 7 of §4.4. ok is false
// when the tile does not actually intersect the region (degenerate grid
// ranges at region edges).
func TileIntersection(region slidemodel.RegionSpec, grid TileGrid, tx, ty int) (src, dest slidemodel.Rect, ok bool) {
	tileX0 := tx * grid.TileWidth
	tileY0 := ty * grid.TileHeight
	tileX1 := tileX0 + grid.TileWidth
	tileY1 := tileY0 + grid.TileHeight

	regX0 := int(region.TopLeft.X)
	regY0 := int(region.TopLeft.Y)
	regX1 := regX0 + int(region.Size.Width)
	regY1 := regY0 + int(region.Size.Height)

	ix0 := max(tileX0, regX0)
	iy0 := max(tileY0, regY0)
	ix1 := min(tileX1, regX1)
	iy1 := min(tileY1, regY1)

	if ix1 <= ix0 || iy1 <= iy0 {
		return slidemodel.Rect{}, slidemodel.Rect{}, false
	}

	src = slidemodel.Rect{
		X:      uint32(ix0 - tileX0),
		Y:      uint32(iy0 - tileY0),
		Width:  uint32(ix1 - ix0),
		Height: uint32(iy1 - iy0),
	}
	dest = slidemodel.Rect{
		X:      uint32(ix0 - regX0),
		Y:      uint32(iy0 - regY0),
		Width:  uint32(ix1 - ix0),
		Height: uint32(iy1 - iy0),
	}
	return src, dest, true
}
