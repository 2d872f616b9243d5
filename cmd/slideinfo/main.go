// Command slideinfo opens a whole-slide image and prints its pyramid,
// channel, and property metadata, mirroring the teacher's coginfo in
// spirit: a thin diagnostic CLI over the library, not a feature of it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Grescilla/fastslide-sub001/internal/registry"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/tilecache"
)

func main() {
	level := flag.Int("level", 0, "pyramid level to plan a region against")
	x := flag.Uint("x", 0, "region top-left X, in level pixels")
	y := flag.Uint("y", 0, "region top-left Y, in level pixels")
	w := flag.Uint("w", 0, "region width; 0 means the whole level")
	h := flag.Uint("h", 0, "region height; 0 means the whole level")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: slideinfo [flags] <slide-file>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	cache := tilecache.GlobalCacheManager().GetCache()
	r, err := registry.Global().CreateReader(path, cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	fmt.Printf("File: %s\n", path)
	fmt.Printf("Format: %s\n", r.FormatName())
	fmt.Printf("Levels: %d\n", r.LevelCount())
	for i := 0; i < r.LevelCount(); i++ {
		info, err := r.LevelInfo(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  level %d: %v\n", i, err)
			continue
		}
		fmt.Printf("  level %d: %dx%d, downsample=%.3f\n", i, info.Dimensions.Width, info.Dimensions.Height, info.Downsample)
	}

	props := r.Properties()
	fmt.Printf("Microns per pixel: X=%.4f Y=%.4f\n", props.MicronsPerPixelX, props.MicronsPerPixelY)
	fmt.Printf("Objective: %s (%.1fx)\n", props.ObjectiveName, props.ObjectiveMagnification)
	if props.ScannerModel != "" {
		fmt.Printf("Scanner: %s\n", props.ScannerModel)
	}

	if channels := r.ChannelMetadata(); len(channels) > 0 {
		fmt.Printf("Channels: %d\n", len(channels))
		for i, ch := range channels {
			fmt.Printf("  %d: %s (%s) color=%v\n", i, ch.Name, ch.Biomarker, ch.Color)
		}
	}

	if names := r.AssociatedImageNames(); len(names) > 0 {
		fmt.Printf("Associated images: %v\n", names)
	}

	printPlanCost(r, *level, uint32(*x), uint32(*y), uint32(*w), uint32(*h))
}

func printPlanCost(r slidemodel.Reader, level int, x, y, w, h uint32) {
	if level < 0 || level >= r.LevelCount() {
		return
	}
	info, err := r.LevelInfo(level)
	if err != nil {
		return
	}
	if w == 0 {
		w = info.Dimensions.Width
	}
	if h == 0 {
		h = info.Dimensions.Height
	}

	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{
		TopLeft: slidemodel.ImageCoordinate{X: x, Y: y},
		Size:    slidemodel.ImageDimensions{Width: w, Height: h},
		Level:   level,
	}}
	plan, err := r.PrepareRequest(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "PrepareRequest(level=%d): %v\n", level, err)
		return
	}
	fmt.Printf("\nPlan for level %d region (%d,%d) %dx%d:\n", level, x, y, w, h)
	fmt.Printf("  tiles: %d, bytes to read: %d\n", plan.Cost.TotalTiles, plan.Cost.TotalBytesToRead)
}
