// Package pixel implements the numeric building blocks used by the
// blended tile-writer strategy and by direct tile copies: sRGB<->linear
// conversion, gain correction, weighted accumulation, Magic-Kernel-Sharp
// subpixel resampling, and rectangular copy/fill kernels.
//
// Every kernel here takes raw slices and dimensions and is side-effect
// free except through its output slice; none of them fail, callers
// pre-validate buffer sizes (a zero-sized rectangle is a no-op).
package pixel

import "math"

// SIMDPad is the trailing slack, in float32 elements, appended to planar
// buffers so that vectorized stores may overwrite harmlessly. This
// implementation is scalar (see DESIGN.md), but callers still allocate
// the padding so Go code and a future SIMD-accelerated build share the
// same buffer contract.
const SIMDPad = 16

const (
	srgbEncodeLutSize = 256
	srgbDecodeLutSize = 4096
)

var (
	linearToSrgb8Lut [srgbDecodeLutSize]uint8
	srgb8ToLinearLut [srgbEncodeLutSize]float32
)

func init() {
	for i := 0; i < srgbEncodeLutSize; i++ {
		s := float64(i) / 255.0
		srgb8ToLinearLut[i] = float32(srgbToLinear(s))
	}
	for i := 0; i < srgbDecodeLutSize; i++ {
		l := float64(i) / float64(srgbDecodeLutSize-1)
		linearToSrgb8Lut[i] = quantizeSrgb(linearToSrgb(l))
	}
}

func srgbToLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func linearToSrgb(l float64) float64 {
	if l <= 0.0031308 {
		return 12.92 * l
	}
	return 1.055*math.Pow(l, 1.0/2.4) - 0.055
}

func quantizeSrgb(s float64) uint8 {
	v := s*255.0 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Srgb8ToLinearPlanar converts an interleaved 8-bit sRGB tile of w*h
// pixels (3 bytes per pixel) into a linear float32 planar buffer: the R
// plane, then G, then B, each w*h elements, followed by SIMDPad elements
// of trailing slack. dst must have length >= 3*w*h + SIMDPad.
func Srgb8ToLinearPlanar(src []byte, w, h int, dst []float32) {
	n := w * h
	if n == 0 {
		return
	}
	rPlane := dst[0:n]
	gPlane := dst[n : 2*n]
	bPlane := dst[2*n : 3*n]
	for i := 0; i < n; i++ {
		rPlane[i] = srgb8ToLinearLut[src[i*3+0]]
		gPlane[i] = srgb8ToLinearLut[src[i*3+1]]
		bPlane[i] = srgb8ToLinearLut[src[i*3+2]]
	}
}

// GainCorrectionLinearPlanar multiplies all three planes in place by
// gain. Callers skip this call entirely when |gain-1| < 1e-4.
func GainCorrectionLinearPlanar(planar []float32, planeSize int, gain float32) {
	n := 3 * planeSize
	for i := 0; i < n; i++ {
		planar[i] *= gain
	}
}

// LinearToSrgb8Fast looks up a single clamped linear value in the 4096
// entry decode LUT.
func LinearToSrgb8Fast(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	idx := int(v*float32(srgbDecodeLutSize-1) + 0.5)
	if idx >= srgbDecodeLutSize {
		idx = srgbDecodeLutSize - 1
	}
	return linearToSrgb8Lut[idx]
}
