package graph

import "math"

// moveNotifyThreshold is the Manhattan displacement a node must accumulate
// since the last notified position before observers hear about the move.
const moveNotifyThreshold = 5.0

// maxControlOffset caps the horizontal reach of a path's control points.
const maxControlOffset = 100.0

// Point is a position in the abstract layout plane.
type Point struct {
	X float64
	Y float64
}

// manhattan returns the Manhattan distance between two points.
func manhattan(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// PathSpec describes the cubic bezier rendered for an edge. Start and End
// anchor at the endpoint nodes; the control points pull horizontally toward
// each other.
type PathSpec struct {
	Start    Point
	Control1 Point
	Control2 Point
	End      Point
}

// PathBetween computes the bezier spec for an edge between two anchor
// points. The control offset scales with half the horizontal span, capped
// so long edges keep a stable curvature.
func PathBetween(start, end Point) PathSpec {
	offset := math.Min(math.Abs(end.X-start.X)*0.5, maxControlOffset)
	return PathSpec{
		Start:    start,
		Control1: Point{X: start.X + offset, Y: start.Y},
		Control2: Point{X: end.X - offset, Y: end.Y},
		End:      end,
	}
}
