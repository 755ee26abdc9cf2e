package coords

import "math"

// ToRelative converts an absolute screen point to fractions of g.
// Results outside [0,1] are returned as-is; callers reject them.
func ToRelative(abs Point, g WindowGeometry) RelativePoint {
	return RelativePoint{
		X: float64(abs.X-g.Origin.X) / float64(g.Width),
		Y: float64(abs.Y-g.Origin.Y) / float64(g.Height),
	}
}

// ToAbsolute converts a relative point back to screen pixels inside g.
func ToAbsolute(rel RelativePoint, g WindowGeometry) Point {
	return Point{
		X: g.Origin.X + int(math.Round(rel.X*float64(g.Width))),
		Y: g.Origin.Y + int(math.Round(rel.Y*float64(g.Height))),
	}
}

// Relativize maps an absolute point and reports whether it lands inside g.
func Relativize(abs Point, g WindowGeometry) (RelativePoint, bool) {
	if g.Degenerate() || !g.Contains(abs) {
		return RelativePoint{}, false
	}
	rel := ToRelative(abs, g)
	return rel, rel.Valid()
}
