package pixel

import "sync"

// AccumulateLinearTile adds weight*pixel into the accumulator planes for
// every pixel of the tile that intersects [0,imgW) x [0,imgH), and adds
// weight to wSum at the same positions. The whole operation executes
// inside mu's critical section. Intersection is computed once up front so
// the inner loop has no per-pixel bounds checks. weight == 0 is a no-op
// other than taking the lock.
func AccumulateLinearTile(
	linearPlanar []float32, tileW, tileH int,
	baseX, baseY int, weight float64,
	accR, accG, accB, wSum []float32,
	imgW, imgH int,
	mu *sync.Mutex,
) {
	// Clip the tile's footprint to the accumulator bounds once.
	x0 := 0
	if baseX < 0 {
		x0 = -baseX
	}
	y0 := 0
	if baseY < 0 {
		y0 = -baseY
	}
	x1 := tileW
	if baseX+tileW > imgW {
		x1 = imgW - baseX
	}
	y1 := tileH
	if baseY+tileH > imgH {
		y1 = imgH - baseY
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}

	w := float32(weight)
	plane := tileW * tileH
	rPlane := linearPlanar[0:plane]
	gPlane := linearPlanar[plane : 2*plane]
	bPlane := linearPlanar[2*plane : 3*plane]

	mu.Lock()
	defer mu.Unlock()
	for ty := y0; ty < y1; ty++ {
		outY := baseY + ty
		srcRow := ty * tileW
		outRow := outY * imgW
		for tx := x0; tx < x1; tx++ {
			outX := baseX + tx
			srcIdx := srcRow + tx
			outIdx := outRow + outX
			accR[outIdx] += w * rPlane[srcIdx]
			accG[outIdx] += w * gPlane[srcIdx]
			accB[outIdx] += w * bPlane[srcIdx]
			wSum[outIdx] += w
		}
	}
}

// FinalizeLinearToSrgb8 converts the weighted linear accumulators into an
// interleaved 8-bit sRGB output buffer. Work is partitioned into disjoint
// 64x64 blocks so callers may run blocks concurrently with no
// synchronization between them; submit is invoked once per block with a
// zero-argument task. With a nil submit every block runs inline before
// FinalizeLinearToSrgb8 returns; otherwise the caller runs the submitted
// tasks and waits for them (threadpool.Batch.Wait does both).
func FinalizeLinearToSrgb8(
	accR, accG, accB, wSum []float32,
	imgW, imgH int,
	out []byte,
	submit func(task func()),
) {
	const blockSize = 64
	for by := 0; by < imgH; by += blockSize {
		for bx := 0; bx < imgW; bx += blockSize {
			x0, y0 := bx, by
			x1 := min(x0+blockSize, imgW)
			y1 := min(y0+blockSize, imgH)
			block := func() {
				finalizeBlock(accR, accG, accB, wSum, imgW, out, x0, y0, x1, y1)
			}
			if submit != nil {
				submit(block)
			} else {
				block()
			}
		}
	}
}

func finalizeBlock(accR, accG, accB, wSum []float32, imgW int, out []byte, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		row := y * imgW
		for x := x0; x < x1; x++ {
			idx := row + x
			w := wSum[idx]
			var r, g, b float32
			if w != 0 {
				r = accR[idx] / w
				g = accG[idx] / w
				b = accB[idx] / w
			}
			o := idx * 3
			out[o+0] = LinearToSrgb8Fast(r)
			out[o+1] = LinearToSrgb8Fast(g)
			out[o+2] = LinearToSrgb8Fast(b)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
