package svs

import (
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

func twoLevelFixture() []level {
	return []level{
		{directoryIndex: 0, dims: slidemodel.ImageDimensions{Width: 1000, Height: 800}, tileWidth: 256, tileHeight: 256, tiled: true, samplesPerPixel: 3},
		{directoryIndex: 1, dims: slidemodel.ImageDimensions{Width: 250, Height: 200}, tileWidth: 256, tileHeight: 256, tiled: true, samplesPerPixel: 3},
	}
}

func TestBuildPlanFullLevel(t *testing.T) {
	levels := twoLevelFixture()
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 1000, Height: 800}, Level: 0}}
	plan, err := buildPlan(req, levels, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	// 1000/256 -> 4 cols (0..3), 800/256 -> 4 rows (0..3): 16 tiles.
	if len(plan.Operations) != 16 {
		t.Fatalf("expected 16 tile ops, got %d", len(plan.Operations))
	}
	if plan.Cost.TotalTiles != 16 {
		t.Fatalf("cost.TotalTiles: got %d", plan.Cost.TotalTiles)
	}
	// y-major ordering: operation i's tile_coord.y must be non-decreasing.
	lastY := uint32(0)
	for _, op := range plan.Operations {
		if op.TileCoord.Y < lastY {
			t.Fatal("operations are not in y-major order")
		}
		lastY = op.TileCoord.Y
	}
}

func TestBuildPlanInvalidLevel(t *testing.T) {
	levels := twoLevelFixture()
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 10, Height: 10}, Level: 5}}
	if _, err := buildPlan(req, levels, slidemodel.Background{}); err == nil {
		t.Fatal("expected error for out-of-range level")
	}
}

func TestBuildPlanRegionOutsideBoundsYieldsEmptyPlan(t *testing.T) {
	levels := twoLevelFixture()
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{
		TopLeft: slidemodel.ImageCoordinate{X: 2000, Y: 2000},
		Size:    slidemodel.ImageDimensions{Width: 100, Height: 100},
		Level:   0,
	}}
	plan, err := buildPlan(req, levels, slidemodel.Background{R: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.IsEmpty() {
		t.Fatalf("expected empty plan, got %d operations", len(plan.Operations))
	}
}

func TestBuildPlanPartialRegionClampsAndIntersects(t *testing.T) {
	levels := twoLevelFixture()
	// Region straddles the right edge of a 1000-wide level: request width
	// 100 starting at x=950 should clamp to width 50.
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{
		TopLeft: slidemodel.ImageCoordinate{X: 950, Y: 0},
		Size:    slidemodel.ImageDimensions{Width: 100, Height: 50},
		Level:   0,
	}}
	plan, err := buildPlan(req, levels, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.ActualRegion.Size.Width != 50 {
		t.Fatalf("expected clamped width 50, got %d", plan.ActualRegion.Size.Width)
	}
	if len(plan.Operations) == 0 {
		t.Fatal("expected at least one tile op")
	}
	for _, op := range plan.Operations {
		if op.Transform.Dest.X+op.Transform.Dest.Width > 50 {
			t.Fatalf("dest rect exceeds clamped output width: %+v", op.Transform.Dest)
		}
	}
}
