package pixel

import (
	"sync"
	"testing"
)

func TestSrgbRoundTrip(t *testing.T) {
	for p := 0; p < 256; p++ {
		for _, weight := range []float64{0.25, 1.0, 3.5} {
			src := []byte{byte(p), byte(p), byte(p)}
			planar := make([]float32, 3+SIMDPad)
			Srgb8ToLinearPlanar(src, 1, 1, planar)

			accR := make([]float32, 1)
			accG := make([]float32, 1)
			accB := make([]float32, 1)
			wSum := make([]float32, 1)
			var mu sync.Mutex
			AccumulateLinearTile(planar, 1, 1, 0, 0, weight, accR, accG, accB, wSum, 1, 1, &mu)

			out := make([]byte, 3)
			FinalizeLinearToSrgb8(accR, accG, accB, wSum, 1, 1, out, nil)

			for c, got := range out {
				want := int(src[c])
				diff := int(got) - want
				if diff < -1 || diff > 1 {
					t.Fatalf("pixel %d channel %d weight %v: got %d want %d +-1", p, c, weight, got, want)
				}
			}
		}
	}
}

func TestSubpixelIdentity(t *testing.T) {
	w, h := 8, 8
	plane := w * h
	src := make([]float32, 3*plane)
	for i := range src {
		src[i] = float32(i%17) / 17.0
	}
	dst := make([]float32, 3*plane)
	ResampleTileSubpixel(src, w, h, 0, 0, dst)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("index %d: got %v want %v", i, dst[i], src[i])
		}
	}
}

func TestGainLinearity(t *testing.T) {
	w, h := 4, 4
	plane := w * h
	src := make([]byte, plane*3)
	for i := range src {
		src[i] = byte((i * 37) % 256)
	}
	gains := []float32{0.5, 1.0, 1.5, 2.0}
	for _, g := range gains {
		planarGain := make([]float32, 3*plane+SIMDPad)
		Srgb8ToLinearPlanar(src, w, h, planarGain)
		GainCorrectionLinearPlanar(planarGain, plane, g)

		accRg := make([]float32, plane)
		accGg := make([]float32, plane)
		accBg := make([]float32, plane)
		wSumG := make([]float32, plane)
		var mu sync.Mutex
		AccumulateLinearTile(planarGain, w, h, 0, 0, 1.0, accRg, accGg, accBg, wSumG, w, h, &mu)

		planarUnity := make([]float32, 3*plane+SIMDPad)
		Srgb8ToLinearPlanar(src, w, h, planarUnity)
		accRu := make([]float32, plane)
		accGu := make([]float32, plane)
		accBu := make([]float32, plane)
		wSumU := make([]float32, plane)
		AccumulateLinearTile(planarUnity, w, h, 0, 0, 1.0, accRu, accGu, accBu, wSumU, w, h, &mu)
		for i := range accRu {
			accRu[i] *= g
			accGu[i] *= g
			accBu[i] *= g
		}

		outG := make([]byte, plane*3)
		FinalizeLinearToSrgb8(accRg, accGg, accBg, wSumG, w, h, outG, nil)
		outU := make([]byte, plane*3)
		FinalizeLinearToSrgb8(accRu, accGu, accBu, wSumU, w, h, outU, nil)

		for i := range outG {
			diff := int(outG[i]) - int(outU[i])
			if diff < -1 || diff > 1 {
				t.Fatalf("gain %v index %d: got %d want %d +-1", g, i, outG[i], outU[i])
			}
		}
	}
}
