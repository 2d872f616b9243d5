package svs

import (
	"log"

	"github.com/Grescilla/fastslide-sub001/internal/pixel"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tiff"
)

// executePlan implements §4.5 for axis-aligned tiles: no blend metadata,
// partial-tile failures are logged and skipped rather than aborting the
// whole region.
func executePlan(plan *slidemodel.TilePlan, r *tiff.Reader, cache slidemodel.TileCache, path string, w slidemodel.Writer) error {
	if plan.IsEmpty() {
		return w.FillWithColor(plan.Output.Background)
	}

	for _, op := range plan.Operations {
		if err := executeOne(plan, op, r, cache, path, w); err != nil {
			log.Printf("svs: skipping tile (%d,%d) level %d: %v", op.TileCoord.X, op.TileCoord.Y, op.Level, err)
		}
	}
	return nil
}

func executeOne(plan *slidemodel.TilePlan, op slidemodel.TileReadOp, r *tiff.Reader, cache slidemodel.TileCache, path string, w slidemodel.Writer) error {
	key := slidemodel.TileKey{Filename: path, Level: op.Level, TileX: int(op.TileCoord.X), TileY: int(op.TileCoord.Y)}

	var pixels []byte
	var tileW, tileH, channels int

	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			pixels = cached.Bytes
			tileW, tileH = int(cached.Size.Width), int(cached.Size.Height)
			channels = cached.Channels
		}
	}

	if pixels == nil {
		decoded, w2, h2, ch, err := r.DecodeTile(int(op.SourceID), int(op.TileCoord.X), int(op.TileCoord.Y))
		if err != nil {
			return err
		}
		if decoded == nil {
			// Sparse tile: nothing is written, so this area keeps the
			// direct writer's zero-initialized contents.
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
