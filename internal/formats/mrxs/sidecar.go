// Package mrxs implements the 3DHistech MRXS slide format: a
// Slidedat.ini sidecar describing a grid of overlapping, fractionally
// positioned, gain-corrected JPEG tiles stored across one or more
// binary datafiles.
//
// Per §1's Non-goals, byte-level MRXS ini discovery is outside the
// tile-pipeline core this module centers on; this parser exists so the
// rest of the package has real per-tile records to plan and execute
// against, in the plain bufio/strings style the teacher uses for its
// own sidecar format (TFW world files).
package mrxs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

// TileRecord is one grid cell's resolved location, per §3's "source_id:
// int (file-scoped identifier, e.g. TIFF directory or MRXS datafile
// index)" and §4.4's MRXS specifics paragraph.
type TileRecord struct {
	TileX, TileY   int
	DatafileIndex  int
	ByteOffset     uint64
	ByteSize       uint32
	FractionalX    float64
	FractionalY    float64
	Gain           float32
}

// LevelSidecar is one pyramid level's tile grid as read from Slidedat.ini.
type LevelSidecar struct {
	TileWidth  int
	TileHeight int
	OverlapX   int
	OverlapY   int
	Downsample float64
	Width      int
	Height     int
	Tiles      map[[2]int]TileRecord
	Datafiles  []string // names (as written in the sidecar) of the binary datafiles this level's records index into
}

// Sidecar is the parsed Slidedat.ini: per-level tile grids plus slide
// properties.
type Sidecar struct {
	Levels                 []LevelSidecar
	MicronsPerPixelX       float64
	MicronsPerPixelY       float64
	ObjectiveMagnification float64
	ScannerModel           string
}

// ParseSidecar reads path (the Slidedat.ini file). Datafile names are
// kept as written; the Reader resolves them against the sidecar's
// directory when it opens them.
func ParseSidecar(path string) (*Sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, slideerr.Wrap("mrxs.ParseSidecar", slideerr.IoError, "opening sidecar", err)
	}
	defer f.Close()

	sections := map[string]map[string]string{}
	var order []string
	var cur string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			cur = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if _, ok := sections[cur]; !ok {
				sections[cur] = map[string]string{}
				order = append(order, cur)
			}
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 || cur == "" {
			continue
		}
		sections[cur][strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, slideerr.Wrap("mrxs.ParseSidecar", slideerr.IoError, "scanning sidecar", err)
	}

	general := sections["GENERAL"]
	sc := &Sidecar{
		MicronsPerPixelX:       parseFloatOr(general["MICROMETER_PER_PIXEL_X"], 0),
		MicronsPerPixelY:       parseFloatOr(general["MICROMETER_PER_PIXEL_Y"], 0),
		ObjectiveMagnification: parseFloatOr(general["OBJECTIVE_MAGNIFICATION"], 0),
		ScannerModel:           general["SCANNER_MODEL"],
	}

	for _, name := range order {
		if !strings.HasPrefix(name, "LEVEL_") {
			continue
		}
		lvl, err := parseLevelSection(sections[name])
		if err != nil {
			return nil, slideerr.Wrap("mrxs.ParseSidecar", slideerr.InvalidArgument, "parsing "+name, err)
		}
		sc.Levels = append(sc.Levels, lvl)
	}
	if len(sc.Levels) == 0 {
		return nil, slideerr.New("mrxs.ParseSidecar", slideerr.InvalidArgument, "no LEVEL_n sections found")
	}
	return sc, nil
}

// parseLevelSection parses one [LEVEL_n] block: header keys (TILE_WIDTH,
// TILE_HEIGHT, OVERLAP_X, OVERLAP_Y, DOWNSAMPLE, WIDTH, HEIGHT,
// DATAFILE_n) plus zero or more "TILE_<x>_<y>" keys of the form
// "datafile=<i> offset=<o> size=<s> fracx=<fx> fracy=<fy> gain=<g>".
func parseLevelSection(kv map[string]string) (LevelSidecar, error) {
	lvl := LevelSidecar{
		TileWidth:  int(parseFloatOr(kv["TILE_WIDTH"], 256)),
		TileHeight: int(parseFloatOr(kv["TILE_HEIGHT"], 256)),
		OverlapX:   int(parseFloatOr(kv["OVERLAP_X"], 0)),
		OverlapY:   int(parseFloatOr(kv["OVERLAP_Y"], 0)),
		Downsample: parseFloatOr(kv["DOWNSAMPLE"], 1.0),
		Width:      int(parseFloatOr(kv["WIDTH"], 0)),
		Height:     int(parseFloatOr(kv["HEIGHT"], 0)),
		Tiles:      map[[2]int]TileRecord{},
	}

	for i := 0; ; i++ {
		df, ok := kv[fmt.Sprintf("DATAFILE_%d", i)]
		if !ok {
			break
		}
		lvl.Datafiles = append(lvl.Datafiles, df)
	}

	for key, val := range kv {
		if !strings.HasPrefix(key, "TILE_") {
			continue
		}
		coords := strings.SplitN(strings.TrimPrefix(key, "TILE_"), "_", 2)
		if len(coords) != 2 {
			continue
		}
		tx, errX := strconv.Atoi(coords[0])
		ty, errY := strconv.Atoi(coords[1])
		if errX != nil || errY != nil {
			continue
		}
		rec, err := parseTileValue(tx, ty, val)
		if err != nil {
			return LevelSidecar{}, err
		}
		lvl.Tiles[[2]int{tx, ty}] = rec
	}
	return lvl, nil
}

func parseTileValue(tx, ty int, val string) (TileRecord, error) {
	rec := TileRecord{TileX: tx, TileY: ty, Gain: 1.0}
	for _, field := range strings.Fields(val) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "datafile":
			v, err := strconv.Atoi(kv[1])
			if err != nil {
				return rec, err
			}
			rec.DatafileIndex = v
		case "offset":
			v, err := strconv.ParseUint(kv[1], 10, 64)
			if err != nil {
				return rec, err
			}
			rec.ByteOffset = v
		case "size":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil {
				return rec, err
			}
			rec.ByteSize = uint32(v)
		case "fracx":
			v, err := strconv.ParseFloat(kv[1], 64)
			if err != nil {
				return rec, err
			}
			rec.FractionalX = v
		case "fracy":
			v, err := strconv.ParseFloat(kv[1], 64)
			if err != nil {
				return rec, err
			}
			rec.FractionalY = v
		case "gain":
			v, err := strconv.ParseFloat(kv[1], 32)
			if err != nil {
				return rec, err
			}
			rec.Gain = float32(v)
		}
	}
	return rec, nil
}

func parseFloatOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
