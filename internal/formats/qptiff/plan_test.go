package qptiff

import (
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

func fixtureLevels() []level {
	return []level{
		{dims: slidemodel.ImageDimensions{Width: 512, Height: 512}, tileWidth: 256, tileHeight: 256, channelDirIndex: []int{0, 1, 2, 3}},
		{dims: slidemodel.ImageDimensions{Width: 256, Height: 256}, tileWidth: 256, tileHeight: 256, channelDirIndex: []int{4, 5, 6, 7}},
	}
}

func TestBuildPlanChannelMajorOrdering(t *testing.T) {
	levels := fixtureLevels()
	req := slidemodel.TileRequest{RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 512, Height: 512}, Level: 0}}
	plan, err := buildPlan(req, levels, nil, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	// 512/256 = 2x2 tiles per channel, 4 channels -> 16 ops total, grouped
	// by channel (TileCoord.X) in non-decreasing blocks.
	if len(plan.Operations) != 16 {
		t.Fatalf("expected 16 ops, got %d", len(plan.Operations))
	}
	lastChannel := uint32(0)
	seenChannels := map[uint32]int{}
	for _, op := range plan.Operations {
		if op.TileCoord.X < lastChannel {
			t.Fatal("operations are not channel-major ordered")
		}
		lastChannel = op.TileCoord.X
		seenChannels[op.TileCoord.X]++
	}
	for ch, count := range seenChannels {
		if count != 4 {
			t.Fatalf("channel %d: expected 4 tiles, got %d", ch, count)
		}
	}
}

func TestBuildPlanChannelSubset(t *testing.T) {
	levels := fixtureLevels()
	req := slidemodel.TileRequest{
		RegionSpec: slidemodel.RegionSpec{Size: slidemodel.ImageDimensions{Width: 512, Height: 512}, Level: 0},
		Channels:   []int{2},
	}
	plan, err := buildPlan(req, levels, nil, slidemodel.Background{})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Operations) != 4 {
		t.Fatalf("expected 4 ops for single selected channel, got %d", len(plan.Operations))
	}
	for _, op := range plan.Operations {
		if op.SourceID != 2 {
			t.Fatalf("expected directory index 2 for selected channel, got %d", op.SourceID)
		}
	}
}
