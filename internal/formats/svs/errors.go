package svs

import (
	"fmt"

	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

func invalidLevel(level, count int) error {
	return slideerr.New("svs.buildPlan", slideerr.InvalidArgument, fmt.Sprintf("level %d out of range (%d levels)", level, count))
}
