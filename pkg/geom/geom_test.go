package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-9

func TestBearing(t *testing.T) {
	origin := Pt(0, 0)
	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"above", Pt(0, -5), 0},
		{"left", Pt(-5, 0), 90},
		{"right", Pt(5, 0), -90},
		{"below", Pt(0, 5), 180},
		{"up-left", Pt(-1, -1), 45},
		{"up-right", Pt(1, -1), -45},
		{"down-left", Pt(-1, 1), 135},
		{"down-right", Pt(1, 1), -135},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := origin.Bearing(tt.to)
			if !scalar.EqualWithinAbs(got, tt.want, tol) {
				t.Errorf("Bearing() = %v, want %v", got, tt.want)
			}
			if got <= -180 || got > 180 {
				t.Errorf("Bearing() = %v outside (-180, 180]", got)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	if d := Pt(0, 0).Distance(Pt(3, 4)); !scalar.EqualWithinAbs(d, 5, tol) {
		t.Errorf("Distance() = %v, want 5", d)
	}
}

func TestAngleHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"normalize -180", Normalize(-180), 180},
		{"normalize 270", Normalize(270), -90},
		{"normalize -270", Normalize(-270), 90},
		{"wrap360 -90", Wrap360(-90), 270},
		{"wrap360 360", Wrap360(360), 0},
		{"positive 0", WrapPositive(0), 360},
		{"positive -45", WrapPositive(-45), 315},
		{"diff across seam", AngleDiff(179, -179), 2},
		{"round 44", RoundTo(44, 45), 45},
		{"round -100", RoundTo(-100, 45), -90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !scalar.EqualWithinAbs(tt.got, tt.want, tol) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRotate(t *testing.T) {
	got := Pt(1, 0).Rotate(90)
	if !scalar.EqualWithinAbs(got.X, 0, tol) || !scalar.EqualWithinAbs(got.Y, -1, tol) {
		t.Errorf("Rotate(90) = %+v, want (0, -1)", got)
	}
}

func TestLineIntersection(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 Point
		want           Point
	}{
		{
			name: "vertical edge, horizontal track",
			a1: Pt(-1, -1), a2: Pt(-1, 1),
			b1: Pt(-5, 0.5), b2: Pt(15, 0.5),
			want: Pt(-1, 0.5),
		},
		{
			name: "horizontal edge, diagonal track",
			a1: Pt(-10, 2), a2: Pt(10, 2),
			b1: Pt(0, 0), b2: Pt(4, 4),
			want: Pt(2, 2),
		},
		{
			name: "skewed lines",
			a1: Pt(0, 0), a2: Pt(1, 3),
			b1: Pt(5, 0), b2: Pt(3, 1),
			want: Pt(5.0/7, 15.0/7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := LineIntersection(tt.a1, tt.a2, tt.b1, tt.b2)
			if !ok {
				t.Fatalf("LineIntersection() reported parallel lines")
			}
			if !scalar.EqualWithinAbs(p.X, tt.want.X, 1e-9) || !scalar.EqualWithinAbs(p.Y, tt.want.Y, 1e-9) {
				t.Errorf("LineIntersection() = %+v, want %+v", p, tt.want)
			}
			// The point must lie on both infinite lines.
			if c := Cross(tt.a1, tt.a2, p); math.Abs(c) > 1e-9 {
				t.Errorf("point off first line, cross = %v", c)
			}
			if c := Cross(tt.b1, tt.b2, p); math.Abs(c) > 1e-9 {
				t.Errorf("point off second line, cross = %v", c)
			}
		})
	}
}

func TestClipPointParallel(t *testing.T) {
	end := Pt(2, 7)
	got := ClipPoint(Pt(-1, -1), Pt(-1, 1), Pt(2, -5), end, end)
	if got != end {
		t.Errorf("ClipPoint() on parallel lines = %+v, want unchanged %+v", got, end)
	}
}
