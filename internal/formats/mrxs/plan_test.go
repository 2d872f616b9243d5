package mrxs

import (
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

// twoByTwoFixture is a 2x2 grid of 100x100 tiles overlapping by 20px on
// each shared edge, giving a 180x180 level.
func twoByTwoFixture() level {
	tiles := map[[2]int]TileRecord{}
	for ty := 0; ty < 2; ty++ {
		for tx := 0; tx < 2; tx++ {
			tiles[[2]int{tx, ty}] = TileRecord{
				TileX: tx, TileY: ty,
				DatafileIndex: 0,
				ByteOffset:    uint64((ty*2+tx)*1000 + 1),
				ByteSize:      999,
				Gain:          1.0,
			}
		}
	}
	return level{
		dims:       slidemodel.ImageDimensions{Width: 180, Height: 180},
		tileWidth:  100,
		tileHeight: 100,
		overlapX:   20,
		overlapY:   20,
		tiles:      tiles,
	}
}

func TestBuildPlanFullLevelWeights(t *testing.T) {
	levels := []level{twoByTwoFixture()}
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 180, Height: 180}, Level: 0}}

	plan, err := buildPlan(req, levels, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Operations) != 4 {
		t.Fatalf("expected 4 ops, got %d", len(plan.Operations))
	}

	want := map[[2]uint32]float64{
		{0, 0}: 1.0,
		{1, 0}: 0.5,
		{0, 1}: 0.5,
		{1, 1}: 0.25,
	}
	for _, op := range plan.Operations {
		if op.Blend == nil {
			t.Fatalf("tile (%d,%d): expected blend metadata", op.TileCoord.X, op.TileCoord.Y)
		}
		key := [2]uint32{op.TileCoord.X, op.TileCoord.Y}
		if got := op.Blend.Weight; got != want[key] {
			t.Errorf("tile %v: weight = %v, want %v", key, got, want[key])
		}
	}
}

func TestBuildPlanInvalidLevel(t *testing.T) {
	levels := []level{twoByTwoFixture()}
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 10, Height: 10}, Level: 5}}
	if _, err := buildPlan(req, levels, slidemodel.Background{}); err == nil {
		t.Fatal("expected error for out-of-range level")
	}
}

func TestBuildPlanPartialRegionSkipsUntouchedTiles(t *testing.T) {
	levels := []level{twoByTwoFixture()}
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{
		TopLeft: slidemodel.ImageCoordinate{X: 0, Y: 0},
		Size:    slidemodel.ImageDimensions{Width: 50, Height: 50},
		Level:   0,
	}}

	plan, err := buildPlan(req, levels, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Operations) != 1 {
		t.Fatalf("expected 1 op for a region entirely inside tile (0,0), got %d", len(plan.Operations))
	}
	op := plan.Operations[0]
	if op.TileCoord.X != 0 || op.TileCoord.Y != 0 {
		t.Fatalf("expected tile (0,0), got (%d,%d)", op.TileCoord.X, op.TileCoord.Y)
	}
	if op.Transform.Dest.Width != 50 || op.Transform.Dest.Height != 50 {
		t.Fatalf("expected dest rect to match the requested 50x50 region, got %dx%d", op.Transform.Dest.Width, op.Transform.Dest.Height)
	}
}

func TestBuildPlanRegionOutsideBoundsYieldsEmptyPlan(t *testing.T) {
	levels := []level{twoByTwoFixture()}
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{
		TopLeft: slidemodel.ImageCoordinate{X: 500, Y: 500},
		Size:    slidemodel.ImageDimensions{Width: 10, Height: 10},
		Level:   0,
	}}

	plan, err := buildPlan(req, levels, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.IsEmpty() {
		t.Fatalf("expected empty plan, got %d ops", len(plan.Operations))
	}
}
