package mrxs

import (
	"fmt"

	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

func invalidLevel(level, count int) error {
	return slideerr.New("mrxs.buildPlan", slideerr.InvalidArgument,
		fmt.Sprintf("level %d out of range [0,%d)", level, count))
}
