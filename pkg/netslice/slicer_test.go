package netslice

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
)

func runSlicer(t *testing.T, f *fixture, settings *simconfig.Settings) (*Result, *pcb.Board) {
	t.Helper()
	sl := &Slicer{
		BoardPath: f.write(t),
		Settings:  settings,
		OutDir:    t.TempDir(),
	}
	res, err := sl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	out, err := pcb.LoadBoard(res.BoardPath)
	if err != nil {
		t.Fatalf("LoadBoard of slice failed: %v", err)
	}
	return res, out
}

func TestSlicerSingleEnded(t *testing.T) {
	res, out := runSlicer(t, clkFixture(), simconfig.DefaultSettings([]string{"CLK"}))

	if res.Name != "CLK" || res.Differential {
		t.Errorf("Name = %q, Differential = %v", res.Name, res.Differential)
	}
	if want := filepath.Join(res.Dir, "CLK.kicad_pcb"); res.BoardPath != want {
		t.Errorf("BoardPath = %s, want %s", res.BoardPath, want)
	}
	if len(vias(out)) != 0 {
		t.Errorf("slice has %d vias, want none", len(vias(out)))
	}

	ports := portsByNumber(out)
	if len(ports) != 2 {
		t.Fatalf("slice has %d ports, want 2", len(ports))
	}
	assertPoint(t, "SP1", ports["SP1"].Position, geom.Pt(-1, 0))
	assertPoint(t, "SP2", ports["SP2"].Position, geom.Pt(11, 0))

	var outline *pcb.Drawing
	for _, id := range out.Drawings() {
		if d := out.Drawing(id); d.Layer == pcb.EdgeCuts {
			outline = d
		}
	}
	if outline == nil {
		t.Fatal("slice has no Edge.Cuts outline")
	}
	assertPoint(t, "outline start", outline.Start, geom.Pt(-2.2, -2))
	assertPoint(t, "outline end", outline.End, geom.Pt(12.2, 2))

	info, err := simconfig.LoadNetInfo(filepath.Join(res.Dir, simconfig.NetInfoFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Nets) != 1 {
		t.Fatalf("netinfo has %d nets, want 1", len(info.Nets))
	}
	if n := info.Nets[0]; n.Name != "CLK" || n.Length != "10.000" || n.Width != "0.200" || n.Impedance != 50 || n.Diff {
		t.Errorf("netinfo = %+v", n)
	}

	sim, err := simconfig.LoadSimulation(filepath.Join(res.Dir, simconfig.SimulationFile))
	if err != nil {
		t.Fatal(err)
	}
	want := []simconfig.Port{
		{Number: 1, Width: 1000, Length: 2000, Impedance: 50, Layer: 0, Plane: 1, Excite: true},
		{Number: 2, Width: 1000, Length: 2000, Impedance: 50, Layer: 0, Plane: 1},
	}
	if len(sim.Ports) != len(want) {
		t.Fatalf("simulation has %d ports, want %d", len(sim.Ports), len(want))
	}
	for i := range want {
		if sim.Ports[i] != want[i] {
			t.Errorf("port %d = %+v, want %+v", i, sim.Ports[i], want[i])
		}
	}
	if len(sim.DifferentialPairs) != 0 {
		t.Errorf("single ended slice has %d pairs", len(sim.DifferentialPairs))
	}

	if res.FirstInfo != "OK." || res.SecondInfo != " - " {
		t.Errorf("info = %q, %q", res.FirstInfo, res.SecondInfo)
	}
	if sum := res.Summary(); sum.Ports != 2 || sum.Name != "CLK" || sum.Length != 10 {
		t.Errorf("Summary() = %+v", sum)
	}
}

func TestSlicerDropsPadsOutsideSlice(t *testing.T) {
	// J9 is an unrouted CLK pad far beyond the board margins
	f := newFixture("CLK").
		class("50Ohm-SE", "CLK").
		pad("U1", "CLK", 0, 0, 2, 1, pcb.FrontCopper).
		pad("J9", "CLK", 50, 0, 2, 1, pcb.FrontCopper).
		segment("CLK", 0, 0, 10, 0, 0.2, pcb.FrontCopper)
	res, out := runSlicer(t, f, simconfig.DefaultSettings([]string{"CLK"}))

	if len(res.First) != 1 || res.First[0] != 1 {
		t.Fatalf("First = %v, want [1]", res.First)
	}
	if n := len(res.Simulation.Ports); n != 1 {
		t.Errorf("simulation has %d ports, want 1", n)
	}

	var outline *pcb.Drawing
	for _, id := range out.Drawings() {
		if d := out.Drawing(id); d.Layer == pcb.EdgeCuts {
			outline = d
		}
	}
	if outline == nil {
		t.Fatal("slice has no Edge.Cuts outline")
	}
	ports := portsByNumber(out)
	if len(ports) != 1 {
		t.Fatalf("slice has %d ports, want 1", len(ports))
	}
	for ref, fp := range ports {
		p := fp.Position
		if p.X < outline.Start.X || p.X > outline.End.X || p.Y < outline.Start.Y || p.Y > outline.End.Y {
			t.Errorf("%s at %v is outside the outline %v-%v", ref, p, outline.Start, outline.End)
		}
	}
	assertPoint(t, "SP1", ports["SP1"].Position, geom.Pt(-1, 0))
	if want := "Too few ( 1 ) Simulation Ports on first net. Check it and fix."; res.FirstInfo != want {
		t.Errorf("FirstInfo = %q, want %q", res.FirstInfo, want)
	}
}

func TestSlicerTerminations(t *testing.T) {
	f := clkFixture().
		class("50Ohm-SE", "DATA").
		segment("DATA", 5, 0.5, 5, 20, 0.2, pcb.FrontCopper).
		segment("SIG", 2, -0.5, 2, -20, 0.3, pcb.FrontCopper)
	settings := simconfig.DefaultSettings([]string{"CLK"})
	settings.NeighbouringNets.InUse = false
	res, out := runSlicer(t, f, settings)

	if len(res.Terminated) != 1 || res.Terminated[0] != 1 {
		t.Errorf("Terminated = %v, want [1]", res.Terminated)
	}
	if len(res.First) != 2 || res.First[0] != 2 || res.First[1] != 3 {
		t.Errorf("First = %v, want [2 3]", res.First)
	}

	// Port numbers are gap free across terminations and pads
	ports := portsByNumber(out)
	for _, ref := range []string{"SP1", "SP2", "SP3"} {
		if ports[ref] == nil {
			t.Errorf("missing %s", ref)
		}
	}
	if len(ports) != 3 {
		t.Errorf("slice has %d ports, want 3", len(ports))
	}
	assertPoint(t, "SP1", ports["SP1"].Position, geom.Pt(5, 1.5))

	vs := vias(out)
	if len(vs) != 1 {
		t.Fatalf("slice has %d vias, want 1", len(vs))
	}
	assertPoint(t, "via", vs[0].Start, geom.Pt(2, -1))
	assertFloat(t, "via width", vs[0].Width, 0.3)
	if name := out.NetName(vs[0].Net); name != pcb.GroundNetName {
		t.Errorf("via net = %s, want GND", name)
	}

	sim := res.Simulation
	if len(sim.Ports) != 3 {
		t.Fatalf("simulation has %d ports, want 3", len(sim.Ports))
	}
	want := simconfig.Port{Number: 1, Width: 200, Length: 250, Impedance: 50, Layer: 0, Plane: 1}
	if sim.Ports[0] != want {
		t.Errorf("terminated port = %+v, want %+v", sim.Ports[0], want)
	}
	for i, p := range sim.Ports {
		if p.Number != i+1 {
			t.Errorf("port record %d has number %d", i, p.Number)
		}
	}
}

func diffFixture() *fixture {
	return newFixture("/USB_P", "/USB_N").
		class("90Ohm-USB", "/USB_P", "/USB_N").
		pad("U1", "/USB_P", 0, 0, 2, 0.5, pcb.FrontCopper).
		pad("U2", "/USB_P", 10, 0, 2, 0.5, pcb.FrontCopper).
		pad("U3", "/USB_N", 0, 1, 2, 0.5, pcb.FrontCopper).
		pad("U4", "/USB_N", 10, 1, 2, 0.5, pcb.FrontCopper).
		segment("/USB_P", 0, 0, 10, 0, 0.15, pcb.FrontCopper).
		segment("/USB_N", 0, 1, 10, 1, 0.15, pcb.FrontCopper)
}

func TestSlicerDifferential(t *testing.T) {
	res, out := runSlicer(t, diffFixture(), simconfig.DefaultSettings([]string{"/USB_P", "/USB_N"}))

	if res.Name != "USB_Diff" || !res.Differential {
		t.Fatalf("Name = %q, Differential = %v", res.Name, res.Differential)
	}
	if len(portsByNumber(out)) != 4 {
		t.Errorf("slice has %d ports, want 4", len(portsByNumber(out)))
	}

	sim := res.Simulation
	if len(sim.DifferentialPairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(sim.DifferentialPairs))
	}
	want := simconfig.DifferentialPair{StartP: 0, StopP: 1, StartN: 2, StopN: 3, Name: "USB_Diff", DiffImpedance: 90}
	if sim.DifferentialPairs[0] != want {
		t.Errorf("pair = %+v, want %+v", sim.DifferentialPairs[0], want)
	}
	excited := 0
	for _, p := range sim.Ports {
		if p.Excite {
			excited++
			if p.Number != 1 && p.Number != 3 {
				t.Errorf("port %d is excited", p.Number)
			}
		}
		if p.Impedance != 50 {
			t.Errorf("port %d impedance = %v, want 50", p.Number, p.Impedance)
		}
	}
	if excited != 2 {
		t.Errorf("%d excited ports, want one per net", excited)
	}
	if len(res.NetInfo.Nets) != 2 || !res.NetInfo.Nets[1].Diff {
		t.Errorf("netinfo = %+v", res.NetInfo.Nets)
	}
	if res.FirstInfo != "OK." || res.SecondInfo != "OK." {
		t.Errorf("info = %q, %q", res.FirstInfo, res.SecondInfo)
	}
}

func TestSlicerDifferentialMismatch(t *testing.T) {
	f := diffFixture().
		pad("U5", "/USB_N", 0, 3, 2, 0.5, pcb.FrontCopper).
		pad("U6", "/USB_N", 10, 3, 2, 0.5, pcb.FrontCopper).
		segment("/USB_N", 0, 3, 10, 3, 0.15, pcb.FrontCopper)
	res, _ := runSlicer(t, f, simconfig.DefaultSettings([]string{"/USB_P", "/USB_N"}))

	if len(res.Second) != 4 {
		t.Fatalf("Second = %v, want 4 ports", res.Second)
	}
	pair := res.Simulation.DifferentialPairs[0]
	if pair.StartP != 0 || pair.StopP != 0 || pair.StartN != 0 || pair.StopN != 0 {
		t.Errorf("pair = %+v, want all zero", pair)
	}
	if want := "Too many ( 4 ) Simulation Ports on second net. Check it and fix if needed."; res.SecondInfo != want {
		t.Errorf("SecondInfo = %q, want %q", res.SecondInfo, want)
	}
}

func TestPairIndices(t *testing.T) {
	tests := []struct {
		name     string
		pos, neg []int
		want     [4]int
	}{
		{"two each", []int{3, 4}, []int{5, 6}, [4]int{2, 3, 4, 5}},
		{"one and three", []int{3}, []int{4, 5, 6}, [4]int{}},
		{"none", nil, nil, [4]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PairIndices(tt.pos, tt.neg); got != tt.want {
				t.Errorf("PairIndices() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlacementInfo(t *testing.T) {
	tests := []struct {
		ports int
		want  string
	}{
		{0, "Too few ( 0 ) Simulation Ports on first net. Check it and fix."},
		{1, "Too few ( 1 ) Simulation Ports on first net. Check it and fix."},
		{2, "OK."},
		{3, "Too many ( 3 ) Simulation Ports on first net. Check it and fix if needed."},
	}
	for _, tt := range tests {
		if got := PlacementInfo(tt.ports, "first"); got != tt.want {
			t.Errorf("PlacementInfo(%d) = %q, want %q", tt.ports, got, tt.want)
		}
	}
}

func TestSlicerErrors(t *testing.T) {
	t.Run("missing board", func(t *testing.T) {
		sl := &Slicer{
			BoardPath: filepath.Join(t.TempDir(), "none.kicad_pcb"),
			Settings:  simconfig.DefaultSettings([]string{"CLK"}),
		}
		if _, err := sl.Run(context.Background()); !errors.Is(err, ErrNoBoard) {
			t.Fatalf("Run() = %v, want ErrNoBoard", err)
		}
	})

	t.Run("not controlled impedance", func(t *testing.T) {
		f := newFixture("CLK").segment("CLK", 0, 0, 10, 0, 0.2, pcb.FrontCopper)
		sl := &Slicer{
			BoardPath: f.write(t),
			Settings:  simconfig.DefaultSettings([]string{"CLK"}),
			OutDir:    t.TempDir(),
		}
		if _, err := sl.Run(context.Background()); !errors.Is(err, ErrNotControlledImpedance) {
			t.Fatalf("Run() = %v, want ErrNotControlledImpedance", err)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		sl := &Slicer{BoardPath: clkFixture().write(t), Settings: &simconfig.Settings{}}
		if _, err := sl.Run(context.Background()); err == nil {
			t.Fatal("Run() accepted settings without nets")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dir := t.TempDir()
		sl := &Slicer{
			BoardPath: clkFixture().write(t),
			Settings:  simconfig.DefaultSettings([]string{"CLK"}),
			OutDir:    dir,
		}
		if _, err := sl.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v, want context.Canceled", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "CLK")); !os.IsNotExist(err) {
			t.Error("canceled run wrote a slice")
		}
	})
}

func TestSlicerPortFootprint(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "My_Port.kicad_mod")
	mod := bytes.Replace(simulationPortMod, []byte(`"Simulation_Port"`), []byte(`"My_Port"`), 1)
	if err := os.WriteFile(lib, mod, 0o644); err != nil {
		t.Fatal(err)
	}
	settings := simconfig.DefaultSettings([]string{"CLK"})
	settings.SimulationPortFootprint = lib
	_, out := runSlicer(t, clkFixture(), settings)

	for ref, fp := range portsByNumber(out) {
		if fp.Name != "My_Port" {
			t.Errorf("%s footprint = %q, want My_Port", ref, fp.Name)
		}
	}
}
