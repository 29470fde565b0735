package netslice

import (
	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// Clip describes a track endpoint moved onto the boundary.
type Clip struct {
	Track       pcb.TrackID
	Point       geom.Point // the new endpoint, on the boundary
	Orientation int        // bearing from Point towards the kept endpoint
	Width       float64
	AtStart     bool // the start of the track was clipped
}

// boundaryEdge is one side of the slice rectangle. outsideHigh is true
// for the max edges, where coordinates above the limit are outside.
type boundaryEdge struct {
	name        string
	outsideHigh bool
	coord       func(geom.Point) float64
	limit       func(Boundary) float64
	line        func(Boundary) (geom.Point, geom.Point)
}

// clipEdges are tested in this order; a track crossing a corner region is
// clipped by each edge it still crosses.
var clipEdges = [...]boundaryEdge{
	{
		name:  "min x",
		coord: func(p geom.Point) float64 { return p.X },
		limit: func(b Boundary) float64 { return b.MinX },
		line: func(b Boundary) (geom.Point, geom.Point) {
			return geom.Pt(b.MinX, b.MinY), geom.Pt(b.MinX, b.MaxY)
		},
	},
	{
		name:        "max x",
		outsideHigh: true,
		coord:       func(p geom.Point) float64 { return p.X },
		limit:       func(b Boundary) float64 { return b.MaxX },
		line: func(b Boundary) (geom.Point, geom.Point) {
			return geom.Pt(b.MaxX, b.MinY), geom.Pt(b.MaxX, b.MaxY)
		},
	},
	{
		name:  "min y",
		coord: func(p geom.Point) float64 { return p.Y },
		limit: func(b Boundary) float64 { return b.MinY },
		line: func(b Boundary) (geom.Point, geom.Point) {
			return geom.Pt(b.MinX, b.MinY), geom.Pt(b.MaxX, b.MinY)
		},
	},
	{
		name:        "max y",
		outsideHigh: true,
		coord:       func(p geom.Point) float64 { return p.Y },
		limit:       func(b Boundary) float64 { return b.MaxY },
		line: func(b Boundary) (geom.Point, geom.Point) {
			return geom.Pt(b.MinX, b.MaxY), geom.Pt(b.MaxX, b.MaxY)
		},
	},
}

// outside reports whether both endpoints lie beyond the same edge.
func outside(t *pcb.Track, b Boundary) bool {
	return (t.Start.X < b.MinX && t.End.X < b.MinX) ||
		(t.Start.X > b.MaxX && t.End.X > b.MaxX) ||
		(t.Start.Y < b.MinY && t.End.Y < b.MinY) ||
		(t.Start.Y > b.MaxY && t.End.Y > b.MaxY)
}

// ClipTracks trims the copper to b. Tracks off controlled impedance nets
// move to GND, tracks beyond an edge are deleted, and tracks crossing an
// edge get the outside endpoint moved onto it and terminated. It returns
// the tracks that were terminated with a simulation port, once per port.
func (s *Slice) ClipTracks(b Boundary) ([]pcb.TrackID, error) {
	var ported []pcb.TrackID
	for _, id := range s.board.Tracks() {
		t := s.board.Track(id)
		if !s.impedanceNet(t.Net) {
			t.Net = s.ground
		}
		if outside(t, b) {
			s.board.DeleteTrack(id)
			continue
		}
		if t.IsVia() {
			continue
		}

		for _, e := range clipEdges {
			l := e.limit(b)
			// Order matters: low to high crossing first
			for _, rising := range []bool{true, false} {
				start, end := e.coord(t.Start), e.coord(t.End)
				crosses := start < l && end > l
				if !rising {
					crosses = start > l && end < l
				}
				if !crosses {
					continue
				}
				// The outside endpoint is the low one on min edges and the
				// high one on max edges
				atStart := rising != e.outsideHigh
				c := s.clip(id, t, e, b, atStart)
				outcome, err := s.Terminate(c)
				if err != nil {
					return nil, err
				}
				if outcome == OutcomePort {
					ported = append(ported, id)
				}
			}
		}
	}
	return ported, nil
}

func (s *Slice) clip(id pcb.TrackID, t *pcb.Track, e boundaryEdge, b Boundary, atStart bool) Clip {
	p1, p2 := e.line(b)
	c := Clip{Track: id, Width: t.Width, AtStart: atStart}
	// Clipped arcs become segments along their chord.
	if t.Kind == pcb.KindArc {
		t.Kind = pcb.KindSegment
		t.Mid = geom.Point{}
	}
	if atStart {
		c.Point = geom.ClipPoint(p1, p2, t.Start, t.End, t.Start)
		c.Orientation = c.Point.Orientation(t.End)
		t.Start = c.Point
	} else {
		c.Point = geom.ClipPoint(p1, p2, t.Start, t.End, t.End)
		c.Orientation = c.Point.Orientation(t.Start)
		t.End = c.Point
	}
	Logger().Debug("clipped track", "edge", e.name, "net", s.netName(t.Net), "x", c.Point.X, "y", c.Point.Y, "orientation", c.Orientation)
	return c
}
