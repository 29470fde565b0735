package netslice

import (
	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
)

// Fixed offsets of the slice outline, in mm.
const (
	footprintStep = 0.2   // clearance added when an edge would cut a footprint
	zoneOffset    = 0.8   // zones reach past the boundary by this much
	edgeOffset    = 1.0   // Edge.Cuts rectangle distance from the boundary
	auxOffset     = 0.025 // keeps the origin off the outline
)

// Boundary is the slice rectangle in board coordinates (y down).
type Boundary struct {
	MaxX float64
	MinX float64
	MaxY float64
	MinY float64
}

// Grow returns the boundary pushed outwards by d on every side.
func (b Boundary) Grow(d float64) Boundary {
	return Boundary{MaxX: b.MaxX + d, MinX: b.MinX - d, MaxY: b.MaxY + d, MinY: b.MinY - d}
}

// Contains reports whether p lies inside or on the boundary.
func (b Boundary) Contains(p geom.Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Clamp moves p onto the nearest point of the boundary when it lies outside.
func (b Boundary) Clamp(p geom.Point) geom.Point {
	p.X = min(max(p.X, b.MinX), b.MaxX)
	p.Y = min(max(p.Y, b.MinY), b.MaxY)
	return p
}

// Margins are the distances between the designated net and the slice edges.
type Margins struct {
	Right  float64
	Left   float64
	Bottom float64
	Top    float64
}

// InitialBoundary is the bounding box of the track endpoints expanded by
// the margins.
func InitialBoundary(starts, ends []geom.Point, m Margins) Boundary {
	var b Boundary
	first := true
	for _, list := range [][]geom.Point{starts, ends} {
		for _, p := range list {
			if first {
				b = Boundary{MaxX: p.X, MinX: p.X, MaxY: p.Y, MinY: p.Y}
				first = false
				continue
			}
			b.MaxX = max(b.MaxX, p.X)
			b.MinX = min(b.MinX, p.X)
			b.MaxY = max(b.MaxY, p.Y)
			b.MinY = min(b.MinY, p.Y)
		}
	}
	if first {
		Logger().Warn("no track endpoints, boundary collapses to the origin")
	}
	b.MaxX += m.Right
	b.MinX -= m.Left
	b.MaxY += m.Bottom
	b.MinY -= m.Top
	return b
}

// SplitFootprints replaces every footprint by one footprint per pad, so
// that deleting one pad later never takes its siblings with it. Pads off
// controlled impedance nets move to GND.
func (s *Slice) SplitFootprints() error {
	for _, fid := range s.board.Footprints() {
		for _, pid := range s.board.FootprintPads(fid) {
			nid, err := s.board.ExtractPad(pid)
			if err != nil {
				return err
			}
			for _, np := range s.board.FootprintPads(nid) {
				pad := s.board.Pad(np)
				if !s.impedanceNet(pad.Net) {
					pad.Net = s.ground
				}
			}
		}
		s.board.DeleteFootprint(fid)
	}
	return nil
}

// FitFootprints deletes the footprints anchored outside b, then moves each
// edge that cuts through a footprint's pads to clear them by 0.2 mm. Edges
// move one footprint at a time, so a moved edge can catch the next one.
func (s *Slice) FitFootprints(b Boundary) Boundary {
	for _, fid := range s.board.Footprints() {
		p := s.board.Footprint(fid).Position
		if p.X > b.MaxX || p.X < b.MinX || p.Y > b.MaxY || p.Y < b.MinY {
			s.board.DeleteFootprint(fid)
		}
	}

	for _, fid := range s.board.Footprints() {
		box := s.board.FootprintBBox(fid)
		if box.Min.X <= b.MinX && box.Max.X >= b.MinX {
			b.MinX = box.Min.X - footprintStep
		}
		if box.Min.X <= b.MaxX && box.Max.X >= b.MaxX {
			b.MaxX = box.Max.X + footprintStep
		}
		if box.Min.Y <= b.MinY && box.Max.Y >= b.MinY {
			b.MinY = box.Min.Y - footprintStep
		}
		if box.Min.Y <= b.MaxY && box.Max.Y >= b.MaxY {
			b.MaxY = box.Max.Y + footprintStep
		}
	}
	return b
}
