package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TIFF tag IDs, extended beyond the COG subset with the ones §6 of the
// slide spec requires: image description (vendor XML), resolution, and
// extra-samples.
const (
	TagImageWidth      = 256
	TagImageLength     = 257
	TagBitsPerSample   = 258
	TagCompression     = 259
	TagPhotometric     = 262
	TagImageDescription = 270
	TagStripOffsets    = 273
	TagSamplesPerPixel = 277
	TagRowsPerStrip    = 278
	TagStripByteCounts = 279
	TagXResolution     = 282
	TagYResolution     = 283
	TagPlanarConfig    = 284
	TagResolutionUnit  = 296
	TagTileWidth       = 322
	TagTileLength      = 323
	TagTileOffsets     = 324
	TagTileByteCounts  = 325
	TagExtraSamples    = 338
	TagSampleFormat    = 339
	TagJPEGTables      = 347
)

// Compression scheme identifiers relevant to the slide formats this
// module reads. 33003/33005 and 50001 are real vendor/GDAL extensions to
// baseline TIFF, not invented values.
const (
	CompressionNone           = 1
	CompressionCCITT          = 2
	CompressionLZW            = 5
	CompressionJPEGOld        = 6
	CompressionJPEG           = 7
	CompressionDeflateAdobe   = 8
	CompressionDeflate        = 32946
	CompressionAperioJP2KYCbCr = 33003
	CompressionAperioJP2KRGB  = 33005
	CompressionWebP           = 50001
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// IFD is a parsed TIFF Image File Directory: one pyramid level, one
// associated image, or one spectral channel page.
type IFD struct {
	Width            uint32
	Height           uint32
	TileWidth        uint32
	TileHeight       uint32
	BitsPerSample    []uint16
	SamplesPerPixel  uint16
	Compression      uint16
	Photometric      uint16
	PlanarConfig     uint16
	RowsPerStrip     uint32
	StripOffsets     []uint64
	StripByteCounts  []uint64
	TileOffsets      []uint64
	TileByteCounts   []uint64
	JPEGTables       []byte
	ImageDescription string
	XResolution      float64
	YResolution      float64
	ResolutionUnit   uint16
	ExtraSamples     []uint16
	SampleFormat     []uint16
}

// TilesAcross returns the number of tiles spanning the image horizontally.
func (ifd *IFD) TilesAcross() int {
	if ifd.TileWidth == 0 {
		return 0
	}
	return int((ifd.Width + ifd.TileWidth - 1) / ifd.TileWidth)
}

// TilesDown returns the number of tiles spanning the image vertically.
func (ifd *IFD) TilesDown() int {
	if ifd.TileHeight == 0 {
		return 0
	}
	return int((ifd.Height + ifd.TileHeight - 1) / ifd.TileHeight)
}

// IsTiled reports whether this directory uses tiles rather than strips.
func (ifd *IFD) IsTiled() bool { return ifd.TileWidth > 0 && ifd.TileHeight > 0 }

type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte
}

// ParseTIFF reads all IFDs (directory chain) from a TIFF or BigTIFF file.
func ParseTIFF(r io.ReadSeeker) ([]IFD, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("invalid TIFF byte order: %x", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	isBigTIFF := magic == 43
	if magic != 42 && magic != 43 {
		return nil, nil, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var firstIFDOffset uint64
	if isBigTIFF {
		var bigHeader [8]byte
		if _, err := io.ReadFull(r, bigHeader[:]); err != nil {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		firstIFDOffset = bo.Uint64(bigHeader[:])
	} else {
		firstIFDOffset = uint64(bo.Uint32(header[4:8]))
	}

	var ifds []IFD
	offset := firstIFDOffset
	for offset != 0 {
		ifd, nextOffset, err := parseOneIFD(r, bo, offset, isBigTIFF)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifds = append(ifds, ifd)
		offset = nextOffset
	}
	return ifds, bo, nil
}

func parseOneIFD(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) (IFD, uint64, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return IFD{}, 0, err
	}

	var numEntries uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = uint64(bo.Uint16(buf[:]))
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]tiffEntry, numEntries)
	for i := uint64(0); i < numEntries; i++ {
		buf := make([]byte, entrySize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return IFD{}, 0, err
		}
		entries[i] = parseTiffEntry(buf, bo, bigTIFF)
	}

	var nextOffset uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		nextOffset = bo.Uint64(buf[:])
	} else {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		nextOffset = uint64(bo.Uint32(buf[:]))
	}

	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF); err != nil {
			return IFD{}, 0, fmt.Errorf("resolving entry tag %d: %w", entries[i].Tag, err)
		}
	}

	return buildIFD(entries, bo), nextOffset, nil
}

func parseTiffEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) tiffEntry {
	tag := bo.Uint16(buf[0:2])
	dt := bo.Uint16(buf[2:4])

	var count uint64
	var valueBytes []byte
	if bigTIFF {
		count = bo.Uint64(buf[4:12])
		valueBytes = make([]byte, 8)
		copy(valueBytes, buf[12:20])
	} else {
		count = uint64(bo.Uint32(buf[4:8]))
		valueBytes = make([]byte, 4)
		copy(valueBytes, buf[8:12])
	}

	return tiffEntry{Tag: tag, DataType: dt, Count: count, Value: valueBytes}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat, dtIFD8:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8:
		return 8
	default:
		return 1
	}
}

func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *tiffEntry, bigTIFF bool) error {
	totalSize := int(e.Count) * dataTypeSize(e.DataType)

	inlineSize := 4
	if bigTIFF {
		inlineSize = 8
	}
	if totalSize <= inlineSize {
		return nil
	}

	var dataOffset uint64
	if bigTIFF {
		dataOffset = bo.Uint64(e.Value)
	} else {
		dataOffset = uint64(bo.Uint32(e.Value))
	}

	if _, err := r.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, totalSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) IFD {
	var ifd IFD
	ifd.SamplesPerPixel = 1
	ifd.PlanarConfig = 1
	ifd.ResolutionUnit = 2

	for _, e := range entries {
		switch e.Tag {
		case TagImageWidth:
			ifd.Width = getUint32(e, bo)
		case TagImageLength:
			ifd.Height = getUint32(e, bo)
		case TagTileWidth:
			ifd.TileWidth = getUint32(e, bo)
		case TagTileLength:
			ifd.TileHeight = getUint32(e, bo)
		case TagBitsPerSample:
			ifd.BitsPerSample = getUint16Slice(e, bo)
		case TagSamplesPerPixel:
			ifd.SamplesPerPixel = getUint16Val(e, bo)
		case TagCompression:
			ifd.Compression = getUint16Val(e, bo)
		case TagPhotometric:
			ifd.Photometric = getUint16Val(e, bo)
		case TagPlanarConfig:
			ifd.PlanarConfig = getUint16Val(e, bo)
		case TagRowsPerStrip:
			ifd.RowsPerStrip = getUint32(e, bo)
		case TagStripOffsets:
			ifd.StripOffsets = getUint64Slice(e, bo)
		case TagStripByteCounts:
			ifd.StripByteCounts = getUint64Slice(e, bo)
		case TagTileOffsets:
			ifd.TileOffsets = getUint64Slice(e, bo)
		case TagTileByteCounts:
			ifd.TileByteCounts = getUint64Slice(e, bo)
		case TagJPEGTables:
			ifd.JPEGTables = append([]byte(nil), e.Value...)
		case TagImageDescription:
			ifd.ImageDescription = string(trimNUL(e.Value))
		case TagXResolution:
			ifd.XResolution = getRational(e, bo)
		case TagYResolution:
			ifd.YResolution = getRational(e, bo)
		case TagResolutionUnit:
			ifd.ResolutionUnit = getUint16Val(e, bo)
		case TagExtraSamples:
			ifd.ExtraSamples = getUint16Slice(e, bo)
		case TagSampleFormat:
			ifd.SampleFormat = getUint16Slice(e, bo)
		}
	}
	return ifd
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func getUint16Val(e tiffEntry, bo binary.ByteOrder) uint16 {
	switch e.DataType {
	case dtShort:
		return bo.Uint16(e.Value)
	case dtLong:
		return uint16(bo.Uint32(e.Value))
	default:
		return uint16(e.Value[0])
	}
}

func getUint32(e tiffEntry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong:
		return bo.Uint32(e.Value)
	case dtLong8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func getUint16Slice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.Count)
	result := make([]uint16, n)
	for i := 0; i < n; i++ {
		switch e.DataType {
		case dtShort:
			result[i] = bo.Uint16(e.Value[i*2 : i*2+2])
		case dtByte:
			result[i] = uint16(e.Value[i])
		}
	}
	return result
}

func getUint64Slice(e tiffEntry, bo binary.ByteOrder) []uint64 {
	n := int(e.Count)
	result := make([]uint64, n)
	switch e.DataType {
	case dtLong:
		for i := 0; i < n; i++ {
			result[i] = uint64(bo.Uint32(e.Value[i*4 : i*4+4]))
		}
	case dtLong8:
		for i := 0; i < n; i++ {
			result[i] = bo.Uint64(e.Value[i*8 : i*8+8])
		}
	case dtShort:
		for i := 0; i < n; i++ {
			result[i] = uint64(bo.Uint16(e.Value[i*2 : i*2+2]))
		}
	}
	return result
}

func getRational(e tiffEntry, bo binary.ByteOrder) float64 {
	if e.DataType != dtRational || len(e.Value) < 8 {
		return 0
	}
	num := bo.Uint32(e.Value[0:4])
	den := bo.Uint32(e.Value[4:8])
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
