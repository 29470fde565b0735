// Package geom holds the 2D primitives used by the slicing engine: points in
// millimeters, bearings in degrees and a determinant line solver.
package geom

import "math"

// Point is a 2D coordinate in millimeters. The y axis points down, as on the
// board canvas.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Bearing returns the orientation of the vector p->q in degrees, normalized
// to (-180, 180]. 0 means q lies above p (-y), 90 to the left (-x), -90 to
// the right (+x) and 180 below (+y). This matches the orientation a KiCad
// footprint needs to point from q back towards p.
func (p Point) Bearing(q Point) float64 {
	deg := math.Atan2(q.X-p.X, q.Y-p.Y)*180/math.Pi - 180
	return Normalize(deg)
}

// Orientation is Bearing rounded to whole degrees.
func (p Point) Orientation(q Point) int {
	return int(math.RoundToEven(p.Bearing(q)))
}

// Rotate rotates p around the origin the way KiCad rotates footprint
// children: positive angles turn counter-clockwise on the y-down canvas.
func (p Point) Rotate(deg float64) Point {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Point{
		X: p.X*cos + p.Y*sin,
		Y: -p.X*sin + p.Y*cos,
	}
}

// Normalize wraps an angle into (-180, 180].
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}

// Wrap360 wraps an angle into [0, 360).
func Wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WrapPositive wraps an angle into (0, 360].
func WrapPositive(deg float64) float64 {
	deg = Wrap360(deg)
	if deg == 0 {
		return 360
	}
	return deg
}

// AngleDiff returns the absolute angular distance between two angles, in [0, 180].
func AngleDiff(a, b float64) float64 {
	return math.Abs(Normalize(a - b))
}

// IsCardinal reports whether deg is a multiple of 90.
func IsCardinal(deg float64) bool {
	return math.Mod(deg, 90) == 0
}

// RoundTo rounds deg to the nearest multiple of step.
func RoundTo(deg, step float64) float64 {
	return step * math.RoundToEven(deg/step)
}
