package tiff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalTIFF assembles a single-IFD little-endian classic TIFF with
// one 16x16 tile, compression none, so ParseTIFF can be exercised without
// a real slide file.
func buildMinimalTIFF(t *testing.T) []byte {
	t.Helper()
	bo := binary.LittleEndian

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, bo, uint16(42))
	binary.Write(&buf, bo, uint32(8)) // first IFD offset

	type ent struct {
		tag, dt uint16
		count   uint32
		value   uint32
	}
	entries := []ent{
		{TagImageWidth, dtLong, 1, 16},
		{TagImageLength, dtLong, 1, 16},
		{TagTileWidth, dtLong, 1, 16},
		{TagTileLength, dtLong, 1, 16},
		{TagBitsPerSample, dtShort, 1, 8},
		{TagSamplesPerPixel, dtShort, 1, 3},
		{TagCompression, dtShort, 1, CompressionNone},
		{TagPhotometric, dtShort, 1, 2},
		{TagPlanarConfig, dtShort, 1, 1},
	}

	// Tile data lives right after the IFD; compute its offset once the
	// IFD's own size is known.
	ifdSize := 2 + (len(entries)+2)*12 + 4 // +2: tile offset/byte-count entries appended below
	tileDataOffset := 8 + ifdSize
	tileByteCount := 16 * 16 * 3

	allEntries := append([]ent{}, entries...)
	allEntries = append(allEntries,
		ent{TagTileOffsets, dtLong, 1, uint32(tileDataOffset)},
		ent{TagTileByteCounts, dtLong, 1, uint32(tileByteCount)},
	)

	binary.Write(&buf, bo, uint16(len(allEntries)))
	for _, e := range allEntries {
		binary.Write(&buf, bo, e.tag)
		binary.Write(&buf, bo, e.dt)
		binary.Write(&buf, bo, e.count)
		binary.Write(&buf, bo, e.value)
	}
	binary.Write(&buf, bo, uint32(0)) // next IFD offset

	if buf.Len() != tileDataOffset {
		t.Fatalf("offset bookkeeping mismatch: buf=%d want=%d", buf.Len(), tileDataOffset)
	}
	buf.Write(make([]byte, tileByteCount))

	return buf.Bytes()
}

func TestParseTIFFSingleTiledIFD(t *testing.T) {
	data := buildMinimalTIFF(t)
	ifds, bo, err := ParseTIFF(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if bo != binary.LittleEndian {
		t.Fatalf("byte order: got %v", bo)
	}
	if len(ifds) != 1 {
		t.Fatalf("expected 1 IFD, got %d", len(ifds))
	}
	ifd := ifds[0]
	if ifd.Width != 16 || ifd.Height != 16 {
		t.Fatalf("dims: got %dx%d", ifd.Width, ifd.Height)
	}
	if ifd.TileWidth != 16 || ifd.TileHeight != 16 {
		t.Fatalf("tile dims: got %dx%d", ifd.TileWidth, ifd.TileHeight)
	}
	if ifd.SamplesPerPixel != 3 {
		t.Fatalf("samples per pixel: got %d", ifd.SamplesPerPixel)
	}
	if ifd.Compression != CompressionNone {
		t.Fatalf("compression: got %d", ifd.Compression)
	}
	if ifd.TilesAcross() != 1 || ifd.TilesDown() != 1 {
		t.Fatalf("tile grid: got %dx%d", ifd.TilesAcross(), ifd.TilesDown())
	}
	if !ifd.IsTiled() {
		t.Fatal("expected IsTiled true")
	}
	if len(ifd.TileOffsets) != 1 || len(ifd.TileByteCounts) != 1 {
		t.Fatalf("tile offset table: got %d/%d entries", len(ifd.TileOffsets), len(ifd.TileByteCounts))
	}
	if ifd.TileByteCounts[0] != uint64(16*16*3) {
		t.Fatalf("tile byte count: got %d", ifd.TileByteCounts[0])
	}
}

func TestParseTIFFInvalidByteOrder(t *testing.T) {
	_, _, err := ParseTIFF(bytes.NewReader([]byte("XX\x2a\x00\x08\x00\x00\x00")))
	if err == nil {
		t.Fatal("expected error for invalid byte order marker")
	}
}

func TestSpliceJPEGTables(t *testing.T) {
	tables := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x01, 0x02, 0xFF, 0xD9}
	scan := []byte{0xFF, 0xD8, 0xFF, 0xDA, 0x03, 0x04, 0xFF, 0xD9}
	spliced := spliceJPEGTables(tables, scan)

	if spliced[0] != 0xFF || spliced[1] != 0xD8 {
		t.Fatal("spliced stream must start with SOI from the tables segment")
	}
	if spliced[len(spliced)-2] != 0xFF || spliced[len(spliced)-1] != 0xD9 {
		t.Fatal("spliced stream must end with EOI from the scan segment")
	}
	// Tables EOI must be dropped and scan SOI must be dropped, leaving
	// exactly one of each in the final stream.
	soiCount, eoiCount := 0, 0
	for i := 0; i+1 < len(spliced); i++ {
		if spliced[i] == 0xFF && spliced[i+1] == 0xD8 {
			soiCount++
		}
		if spliced[i] == 0xFF && spliced[i+1] == 0xD9 {
			eoiCount++
		}
	}
	if soiCount != 1 || eoiCount != 1 {
		t.Fatalf("expected exactly one SOI and one EOI, got soi=%d eoi=%d", soiCount, eoiCount)
	}
}
