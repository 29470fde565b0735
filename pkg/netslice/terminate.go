package netslice

import (
	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// Outcome is how a clipped track was terminated.
type Outcome int

const (
	OutcomeVia Outcome = iota
	OutcomePort
)

func (o Outcome) String() string {
	if o == OutcomePort {
		return "port"
	}
	return "via"
}

// Ground via and port snapping parameters, in mm.
const (
	groundViaDrill    = 0.05
	portSnap          = 0.5
	maxOrthogonalHops = 5
)

// snapRule moves a port outwards from the boundary and fixes its angle.
type snapRule struct {
	dx, dy float64
	angle  float64
}

// portSnaps covers the eight 45 degree multiples. Diagonal exits snap
// along the nearer vertical and are stored as 0 or 180.
var portSnaps = map[int]snapRule{
	0:    {dy: portSnap, angle: 0},
	90:   {dx: portSnap, angle: 90},
	-90:  {dx: -portSnap, angle: -90},
	180:  {dy: -portSnap, angle: 180},
	45:   {dy: portSnap, angle: 0},
	-45:  {dy: portSnap, angle: 0},
	135:  {dy: -portSnap, angle: 180},
	-135: {dy: -portSnap, angle: 180},
}

// Terminate ends a clipped track. Tracks off controlled impedance nets get
// a blind ground via at the clip point; the others get a simulation port.
func (s *Slice) Terminate(c Clip) (Outcome, error) {
	t := s.board.Track(c.Track)
	if !s.impedanceNet(t.Net) {
		s.addGroundVia(t, c)
		return OutcomeVia, nil
	}

	point, theta := c.Point, c.Orientation
	if theta%90 != 0 {
		if o := s.nextOrthogonal(c.Track); o != nil {
			if c.AtStart {
				point, theta = o.Start, o.Start.Orientation(o.End)
			} else {
				point, theta = o.End, o.End.Orientation(o.Start)
			}
		} else {
			Logger().Debug("no orthogonal track, keeping exit angle", "net", s.netName(t.Net), "orientation", theta)
		}
	}

	angle := float64(theta)
	if rule, ok := portSnaps[theta]; ok {
		point = point.Add(geom.Pt(rule.dx, rule.dy))
		angle = rule.angle
	}
	_, n, err := s.placePort(point, angle)
	if err != nil {
		return OutcomePort, err
	}
	Logger().Debug("terminated with port", "port", n, "net", s.netName(t.Net), "x", point.X, "y", point.Y, "angle", angle)
	return OutcomePort, nil
}

// addGroundVia drops a via from the track layer to the adjacent plane. The
// via is typed blind even when the pair is F.Cu and B.Cu.
func (s *Slice) addGroundVia(t *pcb.Track, c Clip) {
	layers := s.groundViaLayers(t.Layer)
	s.board.AddTrack(pcb.Track{
		Kind:    pcb.KindVia,
		Start:   c.Point,
		End:     c.Point,
		Width:   c.Width,
		Drill:   groundViaDrill,
		Layer:   layers[0],
		Layers:  layers,
		Net:     s.ground,
		ViaType: pcb.ViaBlind,
	})
	Logger().Debug("terminated with ground via", "x", c.Point.X, "y", c.Point.Y, "width", c.Width)
}

// groundViaLayers pairs a copper layer with the next plane towards the
// middle of the stack.
func (s *Slice) groundViaLayers(layer string) pcb.LayerSet {
	idx := s.board.CopperIndex(layer)
	count := s.board.CopperLayerCount()
	if idx < 0 || count < 2 {
		return pcb.LayerSet{pcb.FrontCopper, pcb.BackCopper}
	}
	plane := idx - 1
	if idx < count/2 {
		plane = idx + 1
	}
	a, b := idx, plane
	if b < a {
		a, b = b, a
	}
	return pcb.LayerSet{s.board.CopperLayerName(a), s.board.CopperLayerName(b)}
}

// nextOrthogonal walks the segments connected to a track, same net only,
// until one runs at a multiple of 90 degrees. It gives up after a bounded
// number of hops.
func (s *Slice) nextOrthogonal(id pcb.TrackID) *pcb.Track {
	current := s.board.Track(id)
	visited := map[pcb.TrackID]bool{id: true}
	for hop := 0; ; hop++ {
		nid, next := s.connectedSegment(current, visited)
		if next == nil {
			return nil
		}
		if next.Start.Orientation(next.End)%90 == 0 {
			return next
		}
		if hop >= maxOrthogonalHops {
			return nil
		}
		visited[nid] = true
		current = next
	}
}

// connectedSegment returns the first unvisited segment of the same net that
// shares exactly one endpoint with t.
func (s *Slice) connectedSegment(t *pcb.Track, visited map[pcb.TrackID]bool) (pcb.TrackID, *pcb.Track) {
	for _, id := range s.board.Tracks() {
		o := s.board.Track(id)
		if visited[id] || o.Net != t.Net || o.Kind != pcb.KindSegment {
			continue
		}
		if (o.Start == t.End && o.End != t.Start) ||
			(o.End == t.Start && o.Start != t.End) ||
			(o.Start == t.Start && o.End != t.End) ||
			(o.End == t.End && o.Start != t.Start) {
			return id, o
		}
	}
	return 0, nil
}
