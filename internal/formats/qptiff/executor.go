package qptiff

import (
	"log"

	"github.com/Grescilla/fastslide-sub001/internal/pixel"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tiff"
)

// executePlan mirrors svs.executePlan: axis-aligned tiles, no blend
// metadata, partial-tile failures logged and skipped. The only
// difference is that each op already carries its channel in
// TileCoord.X, which the direct tile-writer strategy reads to pick the
// output plane.
func executePlan(plan *slidemodel.TilePlan, r *tiff.Reader, cache slidemodel.TileCache, path string, w slidemodel.Writer) error {
	if plan.IsEmpty() {
		return w.FillWithColor(plan.Output.Background)
	}

	for _, op := range plan.Operations {
		if err := executeOne(op, r, cache, path, w); err != nil {
			log.Printf("qptiff: skipping channel %d tile %d: %v", op.TileCoord.X, op.TileCoord.Y, err)
		}
	}
	return nil
}

func executeOne(op slidemodel.TileReadOp, r *tiff.Reader, cache slidemodel.TileCache, path string, w slidemodel.Writer) error {
	// Recover the real (tx,ty) grid indices from the flattened TileCoord.Y
	// for DecodeTile; the directory's own tile grid width is fixed per
	// level so this round-trips exactly. The cache key uses the directory
	// index and the flattened position instead.
	ifd, err := r.Directory(int(op.SourceID))
	if err != nil {
		return err
	}
	tilesAcross := ifd.TilesAcross()
	flat := int(op.TileCoord.Y)
	tx, ty := 0, 0
	if tilesAcross > 0 {
		tx, ty = flat%tilesAcross, flat/tilesAcross
	}

	key := slidemodel.TileKey{Filename: path, Level: op.Level, TileX: int(op.SourceID), TileY: flat}

	var pixels []byte
	var tileW, tileH, channels int
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			pixels = cached.Bytes
			tileW, tileH, channels = int(cached.Size.Width), int(cached.Size.Height), cached.Channels
		}
	}

	if pixels == nil {
		decoded, w2, h2, ch, err := r.DecodeTile(int(op.SourceID), tx, ty)
		if err != nil {
			return err
		}
		if decoded == nil {
			return nil
		}
		pixels, tileW, tileH, channels = decoded, w2, h2, ch
		if cache != nil {
			cache.Put(key, &slidemodel.CachedTileData{Bytes: pixels, Size: slidemodel.ImageDimensions{Width: uint32(tileW), Height: uint32(tileH)}, Channels: channels})
		}
	}

	src := op.Transform.Source
	fullTile := src.X == 0 && src.Y == 0 && src.Width == uint32(tileW) && src.Height == uint32(tileH)

	sub := pixels
	subW, subH := tileW, tileH
	if !fullTile {
		subW, subH = int(src.Width), int(src.Height)
		sub = make([]byte, subW*subH*channels)
		pixel.CopyRectGeneral(pixels, tileW*channels, int(src.X), int(src.Y), 1, channels, sub, subW*channels, 0, 0, channels, subW, subH)
	}

	rebased := op
	rebased.Transform.Source = slidemodel.Rect{X: 0, Y: 0, Width: uint32(subW), Height: uint32(subH)}
	return w.WriteTile(rebased, sub, subW, subH, channels)
}
