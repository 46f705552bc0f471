// Package convert maps marker geometry between canvas pixels and persisted
// metric coordinates. A marker's semantic position is the center of its
// bounding box, not its top-left origin.
//
// All functions take the scale explicitly; callers are expected to pass a
// validated positive value (see calibration.Scale).
package convert

import (
	"sort"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ToMetric converts a marker's pixel bounding box to its metric center
func ToMetric(left, top, width, height, scale float64) types.Position {
	return types.Position{
		X: (left + width/2) / scale,
		Y: (top + height/2) / scale,
	}
}

// FromMetric converts a metric center to the pixel origin of a marker of the given size
func FromMetric(p types.Position, width, height, scale float64) types.Point {
	return types.Point{
		X: p.X*scale - width/2,
		Y: p.Y*scale - height/2,
	}
}

// SortByX orders positions by ascending x in place. Ties keep their
// original order so repeated exports are stable.
func SortByX(positions []types.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].X < positions[j].X
	})
}
