package pixel

// CopyRectRGB8Interleaved copies a w x h rectangle of 3-byte RGB pixels
// from src (stride srcStride bytes) at (srcX,srcY) into dst (stride
// dstStride bytes) at (dstX,dstY), using a per-row memcpy fast path. No
// color conversion is performed.
func CopyRectRGB8Interleaved(src []byte, srcStride int, srcX, srcY int, dst []byte, dstStride int, dstX, dstY int, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	rowBytes := w * 3
	for row := 0; row < h; row++ {
		srcOff := (srcY+row)*srcStride + srcX*3
		dstOff := (dstY+row)*dstStride + dstX*3
		copy(dst[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
}

// CopyRectGeneral copies a w x h rectangle with arbitrary channel counts
// and sample width. tileChannels is the number of interleaved channels in
// src, imgChannels in dst; only min(tileChannels, imgChannels) channels
// are copied per pixel.
func CopyRectGeneral(src []byte, srcStride int, srcX, srcY int, bytesPerSample, tileChannels int, dst []byte, dstStride int, dstX, dstY int, imgChannels int, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	nChan := tileChannels
	if imgChannels < nChan {
		nChan = imgChannels
	}
	chanBytes := nChan * bytesPerSample
	srcPixelStride := tileChannels * bytesPerSample
	dstPixelStride := imgChannels * bytesPerSample
	for row := 0; row < h; row++ {
		srcRow := (srcY+row)*srcStride + srcX*srcPixelStride
		dstRow := (dstY+row)*dstStride + dstX*dstPixelStride
		for col := 0; col < w; col++ {
			so := srcRow + col*srcPixelStride
			do := dstRow + col*dstPixelStride
			copy(dst[do:do+chanBytes], src[so:so+chanBytes])
		}
	}
}

// CopyTilePlanar copies a w x h rectangle of a single channel from a
// single-channel tile buffer into one plane of a separated-planar output
// image; dst is that plane, already sliced out by the caller.
func CopyTilePlanar(src []byte, srcStride int, srcX, srcY int, dst []byte, dstStride int, dstX, dstY int, bytesPerSample, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	rowBytes := w * bytesPerSample
	for row := 0; row < h; row++ {
		srcOff := (srcY+row)*srcStride + srcX*bytesPerSample
		dstOff := (dstY+row)*dstStride + dstX*bytesPerSample
		copy(dst[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
}

// fillDoubling writes count copies of pattern (len(pattern) bytes) into
// buf starting at offset, using exponential-doubling memcpy: write one
// copy, then repeatedly double the filled region until the target count
// is reached.
func fillDoubling(buf []byte, offset int, pattern []byte, count int) {
	if count <= 0 || len(pattern) == 0 {
		return
	}
	unit := len(pattern)
	copy(buf[offset:offset+unit], pattern)
	filled := 1
	for filled < count {
		chunk := filled
		if filled+chunk > count {
			chunk = count - filled
		}
		copy(buf[offset+filled*unit:offset+(filled+chunk)*unit], buf[offset:offset+chunk*unit])
		filled += chunk
	}
}

// FillRGB8 fills a w*h buffer of interleaved RGB8 pixels with (r,g,b). If
// r==g==b, a single byte memset is used; otherwise exponential doubling.
func FillRGB8(buf []byte, w, h int, r, g, b uint8) {
	n := w * h
	if n == 0 {
		return
	}
	if r == g && g == b {
		for i := range buf[:n*3] {
			buf[i] = r
		}
		return
	}
	fillDoubling(buf, 0, []byte{r, g, b}, n)
}

// FillRGBA8 fills a w*h buffer of interleaved RGBA8 pixels.
func FillRGBA8(buf []byte, w, h int, r, g, b, a uint8) {
	n := w * h
	if n == 0 {
		return
	}
	if r == g && g == b && b == a {
		for i := range buf[:n*4] {
			buf[i] = r
		}
		return
	}
	fillDoubling(buf, 0, []byte{r, g, b, a}, n)
}

// FillGray8 fills a w*h single-channel buffer with the average of r,g,b.
func FillGray8(buf []byte, w, h int, r, g, b uint8) {
	n := w * h
	if n == 0 {
		return
	}
	gray := uint8((int(r) + int(g) + int(b)) / 3)
	for i := range buf[:n] {
		buf[i] = gray
	}
}
