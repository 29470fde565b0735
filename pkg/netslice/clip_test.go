package netslice

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

var box = Boundary{MaxX: 10, MinX: -10, MaxY: 10, MinY: -10}

func TestClipTracksGroundVia(t *testing.T) {
	tests := []struct {
		name      string
		layer     string
		wantPair  pcb.LayerSet
		wantType  string
		width     float64
		wantPoint geom.Point
	}{
		{"top layer", pcb.FrontCopper, pcb.LayerSet{"F.Cu", "In1.Cu"}, pcb.ViaBlind, 0.3, geom.Pt(10, 0)},
		{"bottom layer", pcb.BackCopper, pcb.LayerSet{"In2.Cu", "B.Cu"}, pcb.ViaBlind, 0.25, geom.Pt(10, 0)},
		{"inner layer", "In1.Cu", pcb.LayerSet{"In1.Cu", "In2.Cu"}, pcb.ViaBlind, 0.1, geom.Pt(10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFixture("SIG").segment("SIG", 0, 0, 20, 0, tt.width, tt.layer).board(t)
			s := newSlice(t, b, "CLK")
			ported, err := s.ClipTracks(box)
			if err != nil {
				t.Fatal(err)
			}
			if len(ported) != 0 {
				t.Fatalf("got %d ports, want none", len(ported))
			}
			vs := vias(b)
			if len(vs) != 1 {
				t.Fatalf("got %d vias, want 1", len(vs))
			}
			v := vs[0]
			assertPoint(t, "via", v.Start, tt.wantPoint)
			assertFloat(t, "via width", v.Width, tt.width)
			assertFloat(t, "via drill", v.Drill, groundViaDrill)
			if v.Net != s.ground {
				t.Errorf("via net = %s, want GND", s.netName(v.Net))
			}
			if len(v.Layers) != 2 || v.Layers[0] != tt.wantPair[0] || v.Layers[1] != tt.wantPair[1] {
				t.Errorf("via layers = %v, want %v", v.Layers, tt.wantPair)
			}
			if v.ViaType != tt.wantType {
				t.Errorf("via type = %q, want %q", v.ViaType, tt.wantType)
			}
		})
	}
}

func TestGroundViaLayersFallback(t *testing.T) {
	b := newFixture("SIG").segment("SIG", 0, 0, 20, 0, 0.2, pcb.FrontCopper).board(t)
	s := newSlice(t, b, "CLK")
	layers := s.groundViaLayers(pcb.FrontCopper)
	if !layers.Has("In1.Cu") {
		t.Fatalf("4 layer pair = %v", layers)
	}
	if got := s.groundViaLayers("X.Cu"); !got.Has(pcb.FrontCopper) || !got.Has(pcb.BackCopper) {
		t.Errorf("unknown layer pair = %v, want F.Cu B.Cu", got)
	}
}

func TestClipTracksEndpoints(t *testing.T) {
	// Crossing both x edges, the top edge, the right then bottom edge,
	// fully outside and fully inside
	b := newFixture("SIG", "GND").
		segment("SIG", -20, 0, 20, 0, 0.2, pcb.FrontCopper).
		segment("SIG", 0, 0, 0, -20, 0.2, pcb.FrontCopper).
		segment("SIG", 5, 5, 15, 35, 0.2, pcb.FrontCopper).
		segment("SIG", 20, 0, 30, 0, 0.2, pcb.FrontCopper).
		segment("SIG", 1, 1, 2, 2, 0.2, pcb.FrontCopper).
		board(t)
	s := newSlice(t, b, "CLK")
	if _, err := s.ClipTracks(box); err != nil {
		t.Fatal(err)
	}

	var segs []*pcb.Track
	for _, id := range b.Tracks() {
		if tr := b.Track(id); !tr.IsVia() {
			segs = append(segs, tr)
		}
	}
	if len(segs) != 4 {
		t.Fatalf("got %d segments, want 4", len(segs))
	}
	for _, tr := range segs {
		if !box.Contains(tr.Start) || !box.Contains(tr.End) {
			t.Errorf("segment %v-%v leaves the boundary", tr.Start, tr.End)
		}
	}
	assertPoint(t, "both ends start", segs[0].Start, geom.Pt(-10, 0))
	assertPoint(t, "both ends end", segs[0].End, geom.Pt(10, 0))
	assertPoint(t, "top end", segs[1].End, geom.Pt(0, -10))
	assertPoint(t, "corner end", segs[2].End, geom.Pt(5+5.0/3, 10))
	if n := len(vias(b)); n != 5 {
		// both ends twice, top once, corner on max x and max y
		t.Errorf("got %d ground vias, want 5", n)
	}
}

func TestClipTracksPorts(t *testing.T) {
	tests := []struct {
		name      string
		x1, y1    float64
		x2, y2    float64
		wantPos   geom.Point
		wantAngle float64
	}{
		{"leaves right", 0, 0, 20, 0, geom.Pt(10.5, 0), 90},
		{"leaves left", -20, 0, 0, 0, geom.Pt(-10.5, 0), -90},
		{"leaves top", 0, 0, 0, -20, geom.Pt(0, -10.5), 180},
		{"leaves bottom", 0, 20, 0, 0, geom.Pt(0, 10.5), 0},
		{"diagonal without orthogonal", 0, 0, 20, 20, geom.Pt(10, 10.5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFixture("CLK").class("50Ohm-SE", "CLK").
				segment("CLK", tt.x1, tt.y1, tt.x2, tt.y2, 0.2, pcb.FrontCopper).
				board(t)
			s := newSlice(t, b, "CLK")
			ported, err := s.ClipTracks(box)
			if err != nil {
				t.Fatal(err)
			}
			if len(ported) != 1 {
				t.Fatalf("got %d ports, want 1", len(ported))
			}
			if len(vias(b)) != 0 {
				t.Error("controlled impedance track got a ground via")
			}
			sp := portsByNumber(b)["SP1"]
			if sp == nil {
				t.Fatal("no SP1 footprint")
			}
			assertPoint(t, "port", sp.Position, tt.wantPos)
			assertFloat(t, "port angle", float64(sp.Angle), tt.wantAngle)
		})
	}
}

func TestTerminateFollowsOrthogonal(t *testing.T) {
	b := newFixture("CLK").class("50Ohm-SE", "CLK").
		segment("CLK", -5, 0, 0, 0, 0.2, pcb.FrontCopper).
		segment("CLK", 0, 0, 20, 20, 0.2, pcb.FrontCopper).
		board(t)
	s := newSlice(t, b, "CLK")
	if _, err := s.ClipTracks(box); err != nil {
		t.Fatal(err)
	}
	sp := portsByNumber(b)["SP1"]
	if sp == nil {
		t.Fatal("no SP1 footprint")
	}
	// The port moves to the far end of the horizontal neighbor
	assertPoint(t, "port", sp.Position, geom.Pt(0.5, 0))
	assertFloat(t, "port angle", float64(sp.Angle), 90)
}

func TestNextOrthogonalBounded(t *testing.T) {
	// A closed diagonal ring never reaches an orthogonal segment
	b := newFixture("CLK").class("50Ohm-SE", "CLK").
		segment("CLK", 0, 0, 1, 1, 0.2, pcb.FrontCopper).
		segment("CLK", 1, 1, 2, 0, 0.2, pcb.FrontCopper).
		segment("CLK", 2, 0, 1, -1, 0.2, pcb.FrontCopper).
		segment("CLK", 1, -1, 0, 0, 0.2, pcb.FrontCopper).
		board(t)
	s := newSlice(t, b, "CLK")
	if o := s.nextOrthogonal(b.Tracks()[0]); o != nil {
		t.Errorf("nextOrthogonal() = %v-%v, want nil", o.Start, o.End)
	}
}

func TestNextOrthogonalHopLimit(t *testing.T) {
	// The clipped track runs (4,4)-(20,20). A chain of diagonals leads back
	// from (4,4) to a horizontal segment.
	tests := []struct {
		name      string
		diagonals int
		found     bool
		wantPos   geom.Point
		wantAngle float64
	}{
		{"five diagonals", 5, true, geom.Pt(-0.5, -1), 90},
		{"six diagonals", 6, false, geom.Pt(10, 10.5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("CLK").class("50Ohm-SE", "CLK").
				segment("CLK", 4, 4, 20, 20, 0.2, pcb.FrontCopper)
			for k := 0; k < tt.diagonals; k++ {
				a := float64(4 - k)
				f.segment("CLK", a-1, a-1, a, a, 0.2, pcb.FrontCopper)
			}
			end := float64(4 - tt.diagonals)
			f.segment("CLK", end-5, end, end, end, 0.2, pcb.FrontCopper)
			b := f.board(t)
			s := newSlice(t, b, "CLK")

			o := s.nextOrthogonal(b.Tracks()[0])
			if (o != nil) != tt.found {
				t.Fatalf("nextOrthogonal() = %v, want found %v", o, tt.found)
			}
			if o != nil {
				assertPoint(t, "orthogonal end", o.End, geom.Pt(end, end))
			}

			ported, err := s.ClipTracks(box)
			if err != nil {
				t.Fatal(err)
			}
			if len(ported) != 1 {
				t.Fatalf("got %d ports, want 1", len(ported))
			}
			if n := len(vias(b)); n != 0 {
				t.Errorf("got %d vias, want none on a controlled impedance net", n)
			}
			sp := portsByNumber(b)["SP1"]
			if sp == nil {
				t.Fatal("no SP1 footprint")
			}
			assertPoint(t, "port", sp.Position, tt.wantPos)
			assertFloat(t, "port angle", float64(sp.Angle), tt.wantAngle)
		})
	}
}

func TestClipTracksGroundViaTwoLayers(t *testing.T) {
	doc := newFixture("SIG").segment("SIG", 0, 0, 20, 0, 0.2, pcb.BackCopper).String()
	doc = strings.Replace(doc, "\t\t(1 \"In1.Cu\" signal)\n\t\t(2 \"In2.Cu\" signal)\n", "", 1)
	b, err := pcb.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if n := b.CopperLayerCount(); n != 2 {
		t.Fatalf("CopperLayerCount() = %d, want 2", n)
	}
	s := newSlice(t, b, "CLK")
	if _, err := s.ClipTracks(box); err != nil {
		t.Fatal(err)
	}
	vs := vias(b)
	if len(vs) != 1 {
		t.Fatalf("got %d vias, want 1", len(vs))
	}
	v := vs[0]
	if len(v.Layers) != 2 || v.Layers[0] != pcb.FrontCopper || v.Layers[1] != pcb.BackCopper {
		t.Errorf("via layers = %v, want F.Cu B.Cu", v.Layers)
	}
	if v.ViaType != pcb.ViaBlind {
		t.Errorf("via type = %q, want %q", v.ViaType, pcb.ViaBlind)
	}
}

func TestClipTracksArcChord(t *testing.T) {
	b := newFixture("SIG").
		raw(`(arc (start 0 0) (mid 10 5) (end 20 0) (width 0.2) (layer "F.Cu") (net 1))`).
		board(t)
	s := newSlice(t, b, "CLK")
	if _, err := s.ClipTracks(box); err != nil {
		t.Fatal(err)
	}
	arc := b.Track(b.Tracks()[0])
	if arc.Kind != pcb.KindSegment {
		t.Fatalf("clipped arc kind = %v, want segment", arc.Kind)
	}
	assertPoint(t, "mid", arc.Mid, geom.Point{})
	assertPoint(t, "end", arc.End, geom.Pt(10, 0))
	if n := len(vias(b)); n != 1 {
		t.Errorf("got %d vias, want 1", n)
	}
}

func TestClipTracksDeletesOutside(t *testing.T) {
	b := newFixture("CLK").class("50Ohm-SE", "CLK").
		segment("CLK", 20, 20, 30, 30, 0.2, pcb.FrontCopper).
		via("CLK", 40, 0).
		via("CLK", 0, 0).
		board(t)
	s := newSlice(t, b, "CLK")
	ported, err := s.ClipTracks(box)
	if err != nil {
		t.Fatal(err)
	}
	if len(ported) != 0 {
		t.Errorf("got %d ports, want none", len(ported))
	}
	if n := len(b.Tracks()); n != 1 {
		t.Errorf("got %d tracks, want only the inner via", n)
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeVia.String() != "via" || OutcomePort.String() != "port" {
		t.Errorf("Outcome strings = %s, %s", OutcomeVia, OutcomePort)
	}
}
