package netslice

import (
	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// minZoneArea is the area, in mm², below which a clamped zone is dropped.
const minZoneArea = 1e-5

// edgeCutsWidth is the line width of the slice outline.
const edgeCutsWidth = 0.05

// FitZones clamps every zone outline to b, ties the zone to GND and
// clears its fill so it is poured again when the slice is opened.
func (s *Slice) FitZones(b Boundary) {
	for _, id := range s.board.Zones() {
		z := s.board.Zone(id)
		z.Net = s.ground
		z.Filled = false
		z.IslandRemoval = pcb.IslandsRemoveNever
		for i, p := range z.Outline {
			z.Outline[i] = b.Clamp(p)
		}
		if z.Area() < minZoneArea {
			Logger().Debug("dropping empty zone", "zone", id)
			s.board.DeleteZone(id)
		}
	}
}

// CutOutline keeps only the solder mask drawings, draws the Edge.Cuts
// rectangle 1 mm outside b, removes the mask drawings outside it and moves
// the auxiliary origin next to its bottom left corner. It returns the
// outline rectangle.
func (s *Slice) CutOutline(b Boundary) Boundary {
	for _, id := range s.board.Drawings() {
		if !pcb.IsMaskName(s.board.Drawing(id).Layer) {
			s.board.DeleteDrawing(id)
		}
	}

	outline := b.Grow(edgeOffset)
	s.board.AddDrawing(pcb.Drawing{
		Kind:  "rect",
		Layer: pcb.EdgeCuts,
		Start: geom.Pt(outline.MinX, outline.MinY),
		End:   geom.Pt(outline.MaxX, outline.MaxY),
		Width: edgeCutsWidth,
	})

	for _, id := range s.board.Drawings() {
		d := s.board.Drawing(id)
		if pcb.IsMaskName(d.Layer) && !outline.Contains(d.Position()) {
			s.board.DeleteDrawing(id)
		}
	}

	s.board.SetAuxOrigin(geom.Pt(outline.MinX-auxOffset, outline.MaxY+auxOffset))
	return outline
}

// CreateEdgeCuts runs the boundary and clipping phases for the designated
// track endpoints. It returns the tracks terminated with simulation ports
// and the final, footprint adjusted boundary.
func (s *Slice) CreateEdgeCuts(starts, ends []geom.Point, m Margins) ([]pcb.TrackID, Boundary, error) {
	b := InitialBoundary(starts, ends, m)
	if err := s.SplitFootprints(); err != nil {
		return nil, b, err
	}
	b = s.FitFootprints(b)
	Logger().Debug("slice boundary", "max_x", b.MaxX, "min_x", b.MinX, "max_y", b.MaxY, "min_y", b.MinY)

	ported, err := s.ClipTracks(b)
	if err != nil {
		return nil, b, err
	}
	s.FitZones(b.Grow(zoneOffset))
	s.CutOutline(b)
	return ported, b, nil
}
