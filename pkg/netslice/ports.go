package netslice

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

const (
	// Tracks leaving a pad more than this far apart make it a pass-through.
	passThroughAngle = 30.0
	courtesyWidth    = 0.01
)

// Split pads keep the center of the pad they came from.
const padMatchTolerance = 1e-6

// PortCandidate is a pad a simulation port may be attached to.
type PortCandidate struct {
	Pad            pcb.PadID
	Net            string
	Position       geom.Point
	Flipped        bool    // pad on B.Cu
	PortRotation   float64 // exit angle of the trace, multiple of 45 in (0, 360]
	PadRotation    float64 // pad angle in [0, 360) after size normalization
	Size           pcb.Size
	MultiConnected bool
	Rating         int // 0 is best, 3 worst
	OrthogonalCase bool
	Index          int // assigned port number, 0 until placed
}

// isCardinal reports whether a wrapped angle is one of 0, 90, 180, 270, 360.
func isCardinal(deg float64) bool {
	return deg >= 0 && deg <= 360 && geom.IsCardinal(deg)
}

// PadFilter decides which footprint references may carry ports. A non
// empty include list wins; otherwise the exclude list is applied.
type PadFilter struct {
	Include []string
	Exclude []string
}

// Accepts reports whether a footprint reference passes the filter.
func (f PadFilter) Accepts(reference string) bool {
	switch {
	case len(f.Include) > 0:
		return contains(f.Include, reference)
	case len(f.Exclude) > 0:
		return !contains(f.Exclude, reference)
	}
	return true
}

// DesignatedPads returns the pads on a designated net.
func (s *Slice) DesignatedPads() []pcb.PadID {
	var ids []pcb.PadID
	for _, id := range s.board.Pads() {
		if s.designated(s.netName(s.board.Pad(id).Net)) {
			ids = append(ids, id)
		}
	}
	return ids
}

// OtherPads returns the pads that are not on a designated net.
func (s *Slice) OtherPads() []pcb.PadID {
	var ids []pcb.PadID
	for _, id := range s.board.Pads() {
		if !s.designated(s.netName(s.board.Pad(id).Net)) {
			ids = append(ids, id)
		}
	}
	return ids
}

// PortCandidates rates the pads of nets as port locations. Only pads on the
// outer copper layers qualify. When two or more pads are true trace
// endpoints, pass-through pads are dropped.
func (s *Slice) PortCandidates(pads []pcb.PadID, filter PadFilter, nets []string) []PortCandidate {
	var tracks []*pcb.Track
	for _, id := range s.board.Tracks() {
		t := s.board.Track(id)
		if contains(nets, s.netName(t.Net)) {
			tracks = append(tracks, t)
		}
	}

	var cands []PortCandidate
	for _, pid := range pads {
		pad := s.board.Pad(pid)
		if pad == nil || !contains(nets, s.netName(pad.Net)) {
			continue
		}
		layer := s.board.PadLayer(pid)
		if layer != pcb.FrontCopper && layer != pcb.BackCopper {
			continue
		}
		fp := s.board.Footprint(pad.Footprint)
		center := s.board.PadPosition(pid)

		var touching []*pcb.Track
		for _, t := range tracks {
			hitStart, hitEnd := s.board.PadHitTest(pid, t.Start), s.board.PadHitTest(pid, t.End)
			if (t.Layer == layer && hitStart != hitEnd) || (t.IsVia() && hitStart && hitEnd) {
				touching = append(touching, t)
			}
		}

		multi := false
		var orientation float64
		if len(touching) > 0 {
			out := touching[0]
			for _, t := range touching[1:] {
				if t.Length() > out.Length() {
					out = t
				}
			}
			orientation = float64(s.exitAngle(pid, out))
			for _, t := range touching {
				if geom.AngleDiff(float64(s.exitAngle(pid, t)), orientation) > passThroughAngle {
					multi = true
				}
			}
		} else {
			multi = true
			orientation = float64(pad.Angle)
		}

		size := pad.Size
		padRotation := float64(pad.Angle)
		if size.Width > size.Height {
			size = pcb.Size{Width: size.Height, Height: size.Width}
			padRotation += 90
		}
		padRotation = geom.Wrap360(padRotation)

		orientation = geom.WrapPositive(geom.RoundTo(orientation, 45))
		ort := isCardinal(orientation) && !isCardinal(padRotation)

		rating := 0
		if !pad.IsRectangular() {
			rating++
		}
		if !isCardinal(padRotation) {
			rating++
		}
		if ort || !isCardinal(orientation) {
			rating++
		}

		if !filter.Accepts(fp.Reference) {
			continue
		}
		cands = append(cands, PortCandidate{
			Pad:            pid,
			Net:            s.netName(pad.Net),
			Position:       center,
			Flipped:        fp.Layer == pcb.BackCopper,
			PortRotation:   orientation,
			PadRotation:    padRotation,
			Size:           size,
			MultiConnected: multi,
			Rating:         rating,
			OrthogonalCase: ort,
		})
	}

	single := 0
	for _, c := range cands {
		if !c.MultiConnected {
			single++
		}
	}
	if single >= 2 {
		kept := cands[:0]
		for _, c := range cands {
			if !c.MultiConnected {
				kept = append(kept, c)
			}
		}
		cands = kept
	}
	return cands
}

// Surviving rebinds candidates rated before the slice was cut to the pads
// left on the board. Candidates whose pad was removed or whose center lies
// outside b are dropped.
func (s *Slice) Surviving(cands []PortCandidate, b Boundary) []PortCandidate {
	var kept []PortCandidate
	for _, c := range cands {
		pid, ok := s.padAt(c.Net, c.Position)
		if !ok || !b.Contains(c.Position) {
			Logger().Warn("port candidate outside the slice", "net", c.Net, "x", c.Position.X, "y", c.Position.Y)
			continue
		}
		c.Pad = pid
		kept = append(kept, c)
	}
	return kept
}

// padAt finds the pad of the named net centered on p.
func (s *Slice) padAt(net string, p geom.Point) (pcb.PadID, bool) {
	for _, pid := range s.board.Pads() {
		pad := s.board.Pad(pid)
		if pad == nil || s.netName(pad.Net) != net {
			continue
		}
		if s.board.PadPosition(pid).Distance(p) <= padMatchTolerance {
			return pid, true
		}
	}
	return 0, false
}

// exitAngle is the bearing from the pad center to the far end of a track.
func (s *Slice) exitAngle(pid pcb.PadID, t *pcb.Track) int {
	far := t.End
	if s.board.PadHitTest(pid, t.End) {
		far = t.Start
	}
	if t.Kind == pcb.KindArc {
		far = t.Mid
	}
	return s.board.PadPosition(pid).Orientation(far)
}

// Diagonal ports sit on one of two faces of a 45 degree pad.
var (
	diagonalFront = map[float64]float64{45: 0, 135: 180, 225: 180, 315: 0}
	diagonalSide  = map[float64]float64{45: 90, 135: 90, 225: 270, 315: 270}
)

// PlacePorts attaches a simulation port flush with each candidate pad, in
// order, and numbers it. The candidates are updated with their port number
// and the port size. It returns the port numbers and flipped flags in
// candidate order.
func (s *Slice) PlacePorts(cands []PortCandidate) ([]int, []bool, error) {
	var signal []geom.Point
	for _, id := range s.DesignatedPads() {
		signal = append(signal, s.board.PadPosition(id))
	}

	indices := make([]int, 0, len(cands))
	flips := make([]bool, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		pos, orient := s.portPlacement(c, signal)

		fid, n, err := s.placePort(pos, orient)
		if err != nil {
			return indices, flips, err
		}
		fp := s.board.Footprint(fid)
		w, h := c.Size.Width, c.Size.Height
		fp.Graphics = append(fp.Graphics,
			pcb.Graphic{
				Kind:  "fp_rect",
				Layer: pcb.Eco1User,
				Start: geom.Pt(-1.2*w/2, 0.1*h),
				End:   geom.Pt(1.2*w/2, -1.1*h),
				Width: courtesyWidth,
			},
			pcb.Graphic{
				Kind:  "fp_rect",
				Layer: pcb.Eco2User,
				Start: geom.Pt(-w/2, 0),
				End:   geom.Pt(w/2, -h),
				Width: courtesyWidth,
			},
		)
		s.clearPort(fid)

		c.Index = n
		indices = append(indices, n)
		flips = append(flips, c.Flipped)
		Logger().Debug("placed port", "port", n, "net", c.Net, "x", pos.X, "y", pos.Y, "angle", orient, "rating", c.Rating)
	}
	return indices, flips, nil
}

// portPlacement computes where the port of a candidate goes and how it is
// turned. Diagonal placements halve the port length and stretch its width.
func (s *Slice) portPlacement(c *PortCandidate, signal []geom.Point) (geom.Point, float64) {
	pos := c.Position
	orient := c.PortRotation

	closest := 0.0
	var others []geom.Point
	for _, p := range signal {
		if p != c.Position {
			others = append(others, p)
		}
	}
	if len(others) >= 2 {
		near := others[0]
		for _, p := range others[1:] {
			if p.Distance(c.Position) < near.Distance(c.Position) {
				near = p
			}
		}
		closest = c.Position.Bearing(near)
	}
	closest = geom.WrapPositive(closest)

	w, h := c.Size.Width, c.Size.Height
	dy := 0.5*h*(1+1/math.Sqrt2) - 0.5*w/math.Sqrt2
	dx := 0.5*h/math.Sqrt2 - 0.5*w/math.Sqrt2

	if c.OrthogonalCase {
		padRot := c.PadRotation
		diff := min(math.Abs(orient-padRot-360), math.Abs(orient-padRot))
		if diff > 90 {
			padRot += 180
			if padRot > 360 {
				padRot -= 360
			}
		}
		if padRot > orient {
			orient += 45
		} else {
			orient -= 45
		}
		c.PadRotation = padRot
	}
	orient = geom.Wrap360(orient)

	switch orient {
	case 0:
		pos.Y += h / 2
	case 180:
		pos.Y -= h / 2
	case 90:
		pos.X += h / 2
	case 270:
		pos.X -= h / 2
	default:
		front, ok := diagonalFront[orient]
		if !ok {
			// Not on the 45 degree grid, leave the port on the pad center
			return pos, orient
		}
		c.Size = pcb.Size{Width: w * math.Sqrt2, Height: h / 2}
		flipX, flipY := 1.0, 1.0
		if orient >= 90 && orient <= 270 {
			flipY = -1
		}
		if orient >= 180 {
			flipX = -1
		}
		if (flipY == -1) != (closest > 90 && closest < 270) {
			pos.X += flipX * dy
			pos.Y += flipY * dx
			orient = diagonalSide[orient]
		} else {
			pos.Y += flipY * dy
			pos.X += flipX * dx
			orient = front
		}
	}
	return pos, orient
}

// clearPort deletes footprints of other nets whose first pad overlaps the
// port. Other ports are kept.
func (s *Slice) clearPort(port pcb.FootprintID) {
	box := s.board.FootprintExtent(port)
	for _, fid := range s.board.Footprints() {
		if fid == port {
			continue
		}
		fp := s.board.Footprint(fid)
		if PortReference.MatchString(fp.Reference) {
			continue
		}
		pads := s.board.FootprintPads(fid)
		if len(pads) == 0 || s.designated(s.netName(s.board.Pad(pads[0]).Net)) {
			continue
		}
		if s.board.PadBBox(pads[0]).Intersects(box) {
			Logger().Debug("removing footprint under port", "reference", fp.Reference)
			s.board.DeleteFootprint(fid)
		}
	}
}
