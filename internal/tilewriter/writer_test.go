package tilewriter

import (
	"math"
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

func rect(x, y, w, h uint32) slidemodel.Rect {
	return slidemodel.Rect{X: x, Y: y, Width: w, Height: h}
}

func solidTile(w, h int, r, g, b byte) []byte {
	out := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		out[i*3+0] = r
		out[i*3+1] = g
		out[i*3+2] = b
	}
	return out
}

// TestDirectAlignedScenarioS1 reproduces spec.md S1.
func TestDirectAlignedScenarioS1(t *testing.T) {
	w := NewRGB(slidemodel.ImageDimensions{Width: 512, Height: 512}, slidemodel.Background{R: 255, G: 255, B: 255, A: 255}, false, nil)
	for tx := 0; tx < 2; tx++ {
		for ty := 0; ty < 2; ty++ {
			tile := solidTile(256, 256, byte(tx*16), byte(ty*16), 0)
			op := slidemodel.TileReadOp{
				Transform: slidemodel.TileTransform{
					Source: rect(0, 0, 256, 256),
					Dest:   rect(uint32(256*tx), uint32(256*ty), 256, 256),
				},
			}
			if err := w.WriteTile(op, tile, 256, 256, 3); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	out, err := w.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	stride := 512 * 3
	check := func(x, y int, r, g, b byte) {
		o := y*stride + x*3
		if out[o] != r || out[o+1] != g || out[o+2] != b {
			t.Fatalf("pixel (%d,%d): got (%d,%d,%d) want (%d,%d,%d)", x, y, out[o], out[o+1], out[o+2], r, g, b)
		}
	}
	check(0, 0, 0, 0, 0)
	check(300, 0, 16, 0, 0)
	check(0, 300, 0, 16, 0)
	check(300, 300, 16, 16, 0)
}

// TestEmptyPlanFillsBackgroundScenarioS3 reproduces spec.md S3.
func TestEmptyPlanFillsBackgroundScenarioS3(t *testing.T) {
	w := NewRGB(slidemodel.ImageDimensions{Width: 64, Height: 64}, slidemodel.Background{R: 255, G: 255, B: 255, A: 255}, false, nil)
	if err := w.FillWithColor(slidemodel.Background{R: 255, G: 255, B: 255, A: 255}); err != nil {
		t.Fatal(err)
	}
	out, err := w.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64*64; i++ {
		if out[i*3] != 255 || out[i*3+1] != 255 || out[i*3+2] != 255 {
			t.Fatalf("pixel %d not background", i)
		}
	}
}

// TestBlendedOverlapScenarioS4 reproduces spec.md S4 (pure-red overlap case).
func TestBlendedOverlapScenarioS4(t *testing.T) {
	w := NewRGB(slidemodel.ImageDimensions{Width: 28, Height: 16}, slidemodel.Background{}, true, nil)
	tileA := solidTile(16, 16, 255, 0, 0)
	tileB := solidTile(16, 16, 255, 0, 0)

	opA := slidemodel.TileReadOp{
		Transform: slidemodel.TileTransform{Source: rect(0, 0, 16, 16), Dest: rect(0, 0, 16, 16)},
		Blend:     &slidemodel.BlendMetadata{Weight: 1.0, Gain: 1.0},
	}
	opB := slidemodel.TileReadOp{
		Transform: slidemodel.TileTransform{Source: rect(0, 0, 16, 16), Dest: rect(12, 0, 16, 16)},
		Blend:     &slidemodel.BlendMetadata{Weight: 1.0, Gain: 1.0},
	}
	if err := w.WriteTile(opA, tileA, 16, 16, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTile(opB, tileB, 16, 16, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	out, err := w.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	stride := 28 * 3
	// Overlap region x in [12,16).
	for x := 12; x < 16; x++ {
		o := 8*stride + x*3
		if diff := int(out[o]) - 255; diff < -1 || diff > 1 {
			t.Fatalf("overlap pixel x=%d: R=%d want ~255", x, out[o])
		}
		if out[o+1] != 0 || out[o+2] != 0 {
			t.Fatalf("overlap pixel x=%d: G=%d B=%d want 0", x, out[o+1], out[o+2])
		}
	}
}

// TestGainCorrectionScenarioS5 reproduces spec.md S5.
func TestGainCorrectionScenarioS5(t *testing.T) {
	w := NewRGB(slidemodel.ImageDimensions{Width: 16, Height: 16}, slidemodel.Background{}, true, nil)
	tile := solidTile(16, 16, 128, 128, 128)
	op := slidemodel.TileReadOp{
		Transform: slidemodel.TileTransform{Source: rect(0, 0, 16, 16), Dest: rect(0, 0, 16, 16)},
		Blend:     &slidemodel.BlendMetadata{Weight: 1.0, Gain: 1.5},
	}
	if err := w.WriteTile(op, tile, 16, 16, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	out, err := w.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	// Independently compute expected via the same kernels (srgb->linear,
	// *1.5, clamp, ->srgb) to stay implementation-agnostic about the LUT.
	lin := math.Pow((128.0/255.0+0.055)/1.055, 2.4) * 1.5
	if lin > 1 {
		lin = 1
	}
	want := int(math.Round((1.055*math.Pow(lin, 1/2.4) - 0.055) * 255))
	for i := 0; i < 16*16; i++ {
		for c := 0; c < 3; c++ {
			got := out[i*3+c]
			if diff := int(got) - want; diff < -1 || diff > 1 {
				t.Fatalf("pixel %d channel %d: got %d, want %d +-1", i, c, got, want)
			}
		}
	}
}

func TestFillWithColorUnimplementedChannelCount(t *testing.T) {
	cfg := Config{Dimensions: slidemodel.ImageDimensions{Width: 4, Height: 4}, Channels: 5, PixelFormat: slidemodel.PixelUInt8}
	w := FromConfig(cfg, nil)
	if err := w.FillWithColor(slidemodel.Background{}); err == nil {
		t.Fatal("expected error for unsupported channel count")
	}
}

func TestGetOutputTwiceErrors(t *testing.T) {
	w := NewRGB(slidemodel.ImageDimensions{Width: 4, Height: 4}, slidemodel.Background{}, false, nil)
	_ = w.FillWithColor(slidemodel.Background{R: 1, G: 1, B: 1})
	if _, err := w.GetOutput(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.GetOutput(); err == nil {
		t.Fatal("expected error on second GetOutput call")
	}
}
