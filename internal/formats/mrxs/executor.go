package mrxs

import (
	"bytes"
	"image"
	"image/jpeg"
	"log"

	"github.com/Grescilla/fastslide-sub001/internal/pixel"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// executePlan implements §4.5 for MRXS: every op carries BlendMetadata, so
// the writer resolved from this plan always runs the blended strategy.
// Partial-tile failures (a corrupt datafile record, a truncated read) are
// logged and skipped like the other formats rather than aborting the
// whole region.
func executePlan(plan *slidemodel.TilePlan, r *Reader, w slidemodel.Writer) error {
	if plan.IsEmpty() {
		return w.FillWithColor(plan.Output.Background)
	}

	for _, op := range plan.Operations {
		if err := executeOne(plan, op, r, w); err != nil {
			log.Printf("mrxs: skipping tile (%d,%d) level %d: %v", op.TileCoord.X, op.TileCoord.Y, op.Level, err)
		}
	}
	return nil
}

func executeOne(plan *slidemodel.TilePlan, op slidemodel.TileReadOp, r *Reader, w slidemodel.Writer) error {
	key := slidemodel.TileKey{Filename: r.path, Level: op.Level, TileX: int(op.TileCoord.X), TileY: int(op.TileCoord.Y)}

	var pixels []byte
	var tileW, tileH, channels int

	cache := r.cache
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			pixels = cached.Bytes
			tileW, tileH = int(cached.Size.Width), int(cached.Size.Height)
			channels = cached.Channels
		}
	}

	if pixels == nil {
		raw, err := r.readTileBytes(op.Level, int(op.SourceID), op.ByteOffset, op.ByteSize)
		if err != nil {
			return err
		}
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		pixels, tileW, tileH, channels = imageToRGB8(img)
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

	return w.WriteTile(op, sub, subW, subH, channels)
}

// imageToRGB8 decodes an image.Image (always YCbCr for baseline JPEG
// datafile tiles) into interleaved 8-bit RGB.
func imageToRGB8(img image.Image) ([]byte, int, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out[i+0] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(bl >> 8)
			i += 3
		}
	}
	return out, w, h, 3
}
