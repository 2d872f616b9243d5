package planutil

import (
	"image"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tilewriter"
)

// Region is the narrowed slidemodel.Reader surface ReadRegion needs: the
// two per-format pipeline steps of §4.6, kept here so every format's
// ReadRegion is one call to ReadRegionPipeline instead of a copy of the
// same bug surface per format.
type Region interface {
	PrepareRequest(req slidemodel.TileRequest) (*slidemodel.TilePlan, error)
	ExecutePlan(plan *slidemodel.TilePlan, w slidemodel.Writer) error
}

// ReadRegionPipeline implements the "final" convenience path of §4.6:
// prepare_request, construct a TileWriter from the plan, execute_plan,
// finalize, get_output, decode into an image.Image.
func ReadRegionPipeline(r Region, region slidemodel.RegionSpec) (image.Image, error) {
	req := slidemodel.TileRequest{RegionSpec: region}
	plan, err := r.PrepareRequest(req)
	if err != nil {
		return nil, err
	}

	w := tilewriter.FromPlan(plan, nil)
	if err := r.ExecutePlan(plan, w); err != nil {
		return nil, err
	}
	if err := w.Finalize(); err != nil {
		return nil, err
	}
	out, err := w.GetOutput()
	if err != nil {
		return nil, err
	}

	cfg := w.Config()
	return bytesToImage(out, int(cfg.Dimensions.Width), int(cfg.Dimensions.Height), cfg.Channels), nil
}

func bytesToImage(pixels []byte, w, h, channels int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * channels
			i := img.PixOffset(x, y)
			img.Pix[i+3] = 255
			switch {
			case channels >= 3:
				img.Pix[i+0] = pixels[o+0]
				img.Pix[i+1] = pixels[o+1]
				img.Pix[i+2] = pixels[o+2]
			case channels == 1:
				img.Pix[i+0] = pixels[o]
				img.Pix[i+1] = pixels[o]
				img.Pix[i+2] = pixels[o]
			}
		}
	}
	return img
}
