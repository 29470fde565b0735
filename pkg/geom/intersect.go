package geom

import (
	"gonum.org/v1/gonum/mat"
)

// parallelEpsilon is the smallest |det| treated as non-parallel.
const parallelEpsilon = 1e-12

func det2(a, b, c, d float64) float64 {
	return mat.Det(mat.NewDense(2, 2, []float64{a, b, c, d}))
}

// LineIntersection intersects the infinite line through a1,a2 with the
// infinite line through b1,b2 using Cramer's rule. ok is false when the
// lines are parallel (or degenerate).
func LineIntersection(a1, a2, b1, b2 Point) (p Point, ok bool) {
	detAxy := det2(a1.X, a1.Y, a2.X, a2.Y)
	detAx := det2(a1.X, 1, a2.X, 1)
	detAy := det2(a1.Y, 1, a2.Y, 1)

	detBxy := det2(b1.X, b1.Y, b2.X, b2.Y)
	detBx := det2(b1.X, 1, b2.X, 1)
	detBy := det2(b1.Y, 1, b2.Y, 1)

	num := mat.NewDense(2, 2, []float64{detAxy, detAx, detBxy, detBx})
	den := mat.NewDense(2, 2, []float64{detAx, detAy, detBx, detBy})
	numY := mat.NewDense(2, 2, []float64{detAxy, detAy, detBxy, detBy})

	d := mat.Det(den)
	if d > -parallelEpsilon && d < parallelEpsilon {
		return Point{}, false
	}
	return Point{X: mat.Det(num) / d, Y: mat.Det(numY) / d}, true
}

// ClipPoint intersects a track with a boundary edge. When the two are
// parallel the track endpoint being replaced is returned unchanged.
func ClipPoint(edgeStart, edgeEnd, trackStart, trackEnd, replaced Point) Point {
	p, ok := LineIntersection(edgeStart, edgeEnd, trackStart, trackEnd)
	if !ok {
		return replaced
	}
	return p
}

// Cross returns the z component of (b-a) x (c-a). It is zero when the three
// points are collinear.
func Cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
