// Package tiff implements the subset of baseline TIFF and BigTIFF needed
// to read whole-slide image pyramids: directory parsing, tile/strip
// addressing, and per-compression-scheme decode. It knows nothing about
// slide semantics (levels, regions, blending) — that lives in
// internal/formats/*, which drives this package one tile at a time.
package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"sync"

	"github.com/cocosip/go-dicom-codec/jpeg2000"
	"github.com/gen2brain/webp"
	"github.com/klauspost/compress/flate"

	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

// Reader gives concurrent, read-only access to one TIFF/BigTIFF file via
// an mmap'd byte slice. A Reader is safe for concurrent ReadEncodedTile,
// ReadEncodedStrip and DecodeTile calls;
// callers needing directory-scoped state (vendor TIFF readers that are
// not re-entrant) should serialize through their own handle pool, one
// Reader per goroutine, as §5 describes for SVS/QPTIFF.
type Reader struct {
	path string
	data []byte
	bo   binary.ByteOrder
	ifds []IFD

	mu sync.Mutex // guards nothing today; reserved for future directory cursors
}

// Open memory-maps path and parses its IFD chain. The returned Reader
// owns the mapping until Close is called.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, slideerr.Wrap("tiff.Open", slideerr.IoError, "opening slide file", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, slideerr.Wrap("tiff.Open", slideerr.IoError, "reading slide file", err)
	}
	if fi.Size() == 0 {
		return nil, slideerr.New("tiff.Open", slideerr.InvalidArgument, fmt.Sprintf("%s: empty file", path))
	}

	data, err := mmapFile(f.Fd(), int(fi.Size()))
	if err != nil {
		return nil, slideerr.Wrap("tiff.Open", slideerr.IoError, "reading slide file", err)
	}

	ifds, bo, err := ParseTIFF(bytes.NewReader(data))
	if err != nil {
		munmapFile(data)
		return nil, slideerr.Wrap("tiff.Open", slideerr.InvalidArgument, "parsing TIFF directory chain", err)
	}
	if len(ifds) == 0 {
		munmapFile(data)
		return nil, slideerr.New("tiff.Open", slideerr.InvalidArgument, fmt.Sprintf("%s: no IFDs found", path))
	}

	return &Reader{path: path, data: data, bo: bo, ifds: ifds}, nil
}

// Close unmaps the file. Subsequent reads are invalid.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := munmapFile(r.data)
	r.data = nil
	return err
}

// Path returns the source file path.
func (r *Reader) Path() string { return r.path }

// DirectoryCount returns the number of IFDs (pyramid levels plus any
// associated-image and channel pages, in file order).
func (r *Reader) DirectoryCount() int { return len(r.ifds) }

// Directory returns the IFD at the given index.
func (r *Reader) Directory(index int) (*IFD, error) {
	if index < 0 || index >= len(r.ifds) {
		return nil, slideerr.New("tiff.Directory", slideerr.OutOfRange, fmt.Sprintf("directory %d out of range (%d present)", index, len(r.ifds)))
	}
	return &r.ifds[index], nil
}

// ReadEncodedTile returns the raw, still-compressed bytes for tile
// (col,row) of the directory at index, together with its IFD. A nil
// slice with a nil error means a sparse (unwritten) tile — the format
// executors write nothing for it, so its area keeps whatever the tile
// writer already holds there.
func (r *Reader) ReadEncodedTile(index, col, row int) ([]byte, *IFD, error) {
	ifd, err := r.Directory(index)
	if err != nil {
		return nil, nil, err
	}
	if !ifd.IsTiled() {
		return nil, nil, slideerr.New("tiff.ReadEncodedTile", slideerr.Unimplemented, "directory is strip-organized, not tiled")
	}

	across, down := ifd.TilesAcross(), ifd.TilesDown()
	if col < 0 || col >= across || row < 0 || row >= down {
		return nil, nil, slideerr.New("tiff.ReadEncodedTile", slideerr.OutOfRange, fmt.Sprintf("tile (%d,%d) out of range (%dx%d)", col, row, across, down))
	}

	idx := row*across + col
	if idx >= len(ifd.TileOffsets) || idx >= len(ifd.TileByteCounts) {
		return nil, nil, slideerr.New("tiff.ReadEncodedTile", slideerr.Internal, "tile index exceeds offset table")
	}

	offset, size := ifd.TileOffsets[idx], ifd.TileByteCounts[idx]
	if size == 0 {
		return nil, ifd, nil
	}
	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, nil, slideerr.New("tiff.ReadEncodedTile", slideerr.IoError, "tile data range exceeds file size")
	}
	return r.data[offset:end], ifd, nil
}

// ReadEncodedStrip is the strip-addressed analogue of ReadEncodedTile,
// used by base levels of formats (SVS) that store row 0 as classic
// RowsPerStrip strips rather than square tiles.
func (r *Reader) ReadEncodedStrip(index, strip int) ([]byte, *IFD, error) {
	ifd, err := r.Directory(index)
	if err != nil {
		return nil, nil, err
	}
	if strip < 0 || strip >= len(ifd.StripOffsets) {
		return nil, nil, slideerr.New("tiff.ReadEncodedStrip", slideerr.OutOfRange, "strip index out of range")
	}
	offset, size := ifd.StripOffsets[strip], ifd.StripByteCounts[strip]
	if size == 0 {
		return nil, ifd, nil
	}
	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, nil, slideerr.New("tiff.ReadEncodedStrip", slideerr.IoError, "strip data range exceeds file size")
	}
	return r.data[offset:end], ifd, nil
}

// DecodeTile reads tile (col,row) of directory index and returns it as
// interleaved 8-bit samples, regardless of the on-disk compression
// scheme. The returned channel count is ifd.SamplesPerPixel for
// uncompressed, LZW and Deflate tiles, 3 for JPEG and WebP (decoded to
// RGB, alpha discarded), and the codestream's component count for Aperio
// JPEG2000.
func (r *Reader) DecodeTile(index, col, row int) ([]byte, int, int, int, error) {
	raw, ifd, err := r.ReadEncodedTile(index, col, row)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	w, h := int(ifd.TileWidth), int(ifd.TileHeight)
	if raw == nil {
		return nil, w, h, int(ifd.SamplesPerPixel), nil
	}
	return decodeCompressed(ifd, raw, w, h)
}

// decodeCompressed dispatches on the IFD's compression tag. Every branch
// is grounded in a real tag value from §4.5/§6: 1=None, 5=LZW (TIFF
// variant), 7=JPEG (baseline, using JPEGTables if present), 8/32946=
// Deflate, 33003/33005=Aperio JPEG2000 (YCbCr/RGB), 50001=WebP.
func decodeCompressed(ifd *IFD, raw []byte, w, h int) ([]byte, int, int, int, error) {
	switch ifd.Compression {
	case CompressionNone:
		return raw, w, h, int(ifd.SamplesPerPixel), nil

	case CompressionLZW:
		dec, err := decompressTIFFLZW(raw)
		if err != nil {
			return nil, 0, 0, 0, slideerr.Wrap("tiff.decodeCompressed", slideerr.IoError, "decompressing tile", err)
		}
		return dec, w, h, int(ifd.SamplesPerPixel), nil

	case CompressionDeflate, CompressionDeflateAdobe:
		dec, err := inflate(raw)
		if err != nil {
			return nil, 0, 0, 0, slideerr.Wrap("tiff.decodeCompressed", slideerr.IoError, "decompressing tile", err)
		}
		return dec, w, h, int(ifd.SamplesPerPixel), nil

	case CompressionJPEG, CompressionJPEGOld:
		return decodeJPEGTile(ifd, raw, w, h)

	case CompressionAperioJP2KYCbCr, CompressionAperioJP2KRGB:
		return decodeJPEG2000Tile(raw, w, h)

	case CompressionWebP:
		return decodeWebPTile(raw, w, h)

	default:
		return nil, 0, 0, 0, slideerr.New("tiff.decodeCompressed", slideerr.Unimplemented, fmt.Sprintf("compression scheme %d", ifd.Compression))
	}
}

func inflate(data []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(stripZlibHeader(data)))
	defer zr.Close()
	return io.ReadAll(zr)
}

// stripZlibHeader removes the 2-byte zlib wrapper some encoders emit
// around tag-8 "Adobe Deflate" streams; raw flate.Reader cannot parse it.
func stripZlibHeader(data []byte) []byte {
	if len(data) >= 2 && data[0]&0x0f == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0 {
		return data[2:]
	}
	return data
}

// decodeJPEGTile decodes one tile's JPEG stream via the standard
// library. When the IFD carries an external JPEGTables entry (tables-only
// abbreviated-format JPEG, as Aperio baseline-JPEG slides use), it is
// spliced in front of the tile's scan data to form a complete stream.
func decodeJPEGTile(ifd *IFD, raw []byte, w, h int) ([]byte, int, int, int, error) {
	stream := raw
	if len(ifd.JPEGTables) > 0 {
		stream = spliceJPEGTables(ifd.JPEGTables, raw)
	}
	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, 0, 0, 0, slideerr.Wrap("tiff.decodeJPEGTile", slideerr.IoError, "decoding JPEG tile", err)
	}
	return imageToRGB8(img, w, h)
}

// spliceJPEGTables concatenates the SOI+tables segment from JPEGTables
// with the scan-data-only tile stream (skipping its own SOI) to produce a
// decodable full JPEG image, per the TIFF 6.0 technical note on tag 347.
func spliceJPEGTables(tables, scan []byte) []byte {
	if len(scan) >= 2 && scan[0] == 0xFF && scan[1] == 0xD8 {
		scan = scan[2:]
	}
	if len(tables) >= 2 && tables[len(tables)-2] == 0xFF && tables[len(tables)-1] == 0xD9 {
		tables = tables[:len(tables)-2]
	}
	out := make([]byte, 0, len(tables)+len(scan))
	out = append(out, tables...)
	out = append(out, scan...)
	return out
}

func decodeJPEG2000Tile(raw []byte, w, h int) ([]byte, int, int, int, error) {
	dec := jpeg2000.NewDecoder()
	if err := dec.Decode(raw); err != nil {
		return nil, 0, 0, 0, slideerr.Wrap("tiff.decodeJPEG2000Tile", slideerr.IoError, "decoding JPEG2000 tile", err)
	}
	pixels := dec.GetPixelData()
	return pixels, dec.Width(), dec.Height(), dec.Components(), nil
}

func decodeWebPTile(raw []byte, w, h int) ([]byte, int, int, int, error) {
	img, err := webp.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, 0, slideerr.Wrap("tiff.decodeWebPTile", slideerr.IoError, "decoding WebP tile", err)
	}
	return imageToRGB8(img, w, h)
}

// imageToRGB8 flattens a decoded image.Image into interleaved 8-bit RGB,
// the common currency the format executors hand to the tile writer.
func imageToRGB8(img image.Image, fallbackW, fallbackH int) ([]byte, int, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		w, h = fallbackW, fallbackH
	}
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			o := (y*w + x) * 3
			out[o+0] = byte(r >> 8)
			out[o+1] = byte(g >> 8)
			out[o+2] = byte(bl >> 8)
		}
	}
	return out, w, h, 3, nil
}
