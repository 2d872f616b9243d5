package pixel

import "math"

// MksRadius is the half-support of the Magic-Kernel-Sharp-2021 kernel
// (support 11, radius 5).
const MksRadius = 5

const (
	mksLutRes     = 2000
	mksSupport    = 4.5
)

var mksLut []float32

func init() {
	size := mksLutSize()
	mksLut = make([]float32, size)
	for i := 0; i < size; i++ {
		x := float64(i) / mksLutRes
		mksLut[i] = float32(magicKernelSharp2021(x))
	}
}

func mksLutSize() int {
	return int(mksSupport*mksLutRes) + 2
}

// magicKernelSharp2021 evaluates the piecewise-polynomial MKS-2021
// kernel at x.
func magicKernelSharp2021(x float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax <= 0.5:
		return 577.0/576.0 - (239.0/144.0)*x*x
	case ax <= 1.5:
		return (1.0 / 144.0) * (140*x*x - 379*ax + 239)
	case ax <= 2.5:
		return -(1.0 / 144.0) * (24*x*x - 113*ax + 130)
	case ax <= 3.5:
		return (1.0 / 144.0) * (4*x*x - 27*ax + 45)
	case ax <= 4.5:
		return -(1.0 / 1152.0) * (2*ax - 9) * (2*ax - 9)
	default:
		return 0
	}
}

func mksLutLookup(dist float64) float32 {
	idx := int(math.Round(dist * mksLutRes))
	size := mksLutSize()
	if idx < 0 {
		idx = 0
	}
	if idx >= size {
		idx = size - 1
	}
	return mksLut[idx]
}

// BuildMksKernel evaluates the 11-tap kernel for a sub-pixel translation
// by frac, returning weights for t in {-5,...,+5}.
func BuildMksKernel(frac float64) [2*MksRadius + 1]float32 {
	var kernel [2*MksRadius + 1]float32
	for i := -MksRadius; i <= MksRadius; i++ {
		t := float64(i)
		dist := math.Abs(t - frac)
		kernel[i+MksRadius] = mksLutLookup(dist)
	}
	return kernel
}

// reflectIndex maps an out-of-bounds index back into [0, n) by symmetric
// reflection, matching the boundary handling used by resample_mks.cpp.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i = i % period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// ResampleTileSubpixel applies a separable MKS-2021 convolution for a
// sub-pixel translation (fracX, fracY) with symmetric reflection at
// boundaries. If both offsets are negligible, it copies src to dst.
// srcLinearPlanar and dstLinearPlanar are w*h*3 (+ padding) planar
// buffers; dst may alias src only when both offsets are negligible.
func ResampleTileSubpixel(srcLinearPlanar []float32, w, h int, fracX, fracY float64, dstLinearPlanar []float32) {
	plane := w * h
	const eps = 1e-12
	if math.Abs(fracX) < eps && math.Abs(fracY) < eps {
		if &srcLinearPlanar[0] != &dstLinearPlanar[0] {
			copy(dstLinearPlanar[:3*plane], srcLinearPlanar[:3*plane])
		}
		return
	}

	kernelX := BuildMksKernel(fracX)
	kernelY := BuildMksKernel(fracY)

	temp := make([]float32, 3*plane)

	for c := 0; c < 3; c++ {
		srcPlane := srcLinearPlanar[c*plane : (c+1)*plane]
		tempPlane := temp[c*plane : (c+1)*plane]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum float32
				for k := -MksRadius; k <= MksRadius; k++ {
					srcX := reflectIndex(x+k, w)
					sum += srcPlane[y*w+srcX] * kernelX[k+MksRadius]
				}
				tempPlane[y*w+x] = sum
			}
		}
	}

	for c := 0; c < 3; c++ {
		tempPlane := temp[c*plane : (c+1)*plane]
		dstPlane := dstLinearPlanar[c*plane : (c+1)*plane]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum float32
				for k := -MksRadius; k <= MksRadius; k++ {
					srcY := reflectIndex(y+k, h)
					sum += tempPlane[srcY*w+x] * kernelY[k+MksRadius]
				}
				dstPlane[y*w+x] = sum
			}
		}
	}
}
