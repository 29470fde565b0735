package netslice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-6

const boardHead = `(kicad_pcb
	(version 20240108)
	(generator "pcbnew")
	(general (thickness 1.6))
	(layers
		(0 "F.Cu" signal)
		(1 "In1.Cu" signal)
		(2 "In2.Cu" signal)
		(31 "B.Cu" signal)
		(38 "B.Mask" user)
		(39 "F.Mask" user)
		(42 "Eco1.User" user)
		(43 "Eco2.User" user)
		(44 "Edge.Cuts" user)
	)
	(setup (aux_axis_origin 0 0))
`

// fixture assembles a board document. Nets are numbered from 1 in the
// order given, then in order of first use; classes map a net class to its
// nets.
type fixture struct {
	nets    []string
	classes map[string][]string
	items   []string
}

func newFixture(nets ...string) *fixture {
	return &fixture{nets: nets, classes: map[string][]string{}}
}

func (f *fixture) class(name string, nets ...string) *fixture {
	f.classes[name] = append(f.classes[name], nets...)
	return f
}

func (f *fixture) code(net string) int {
	for i, n := range f.nets {
		if n == net {
			return i + 1
		}
	}
	f.nets = append(f.nets, net)
	return len(f.nets)
}

func (f *fixture) segment(net string, x1, y1, x2, y2, width float64, layer string) *fixture {
	f.items = append(f.items, fmt.Sprintf(
		"\t(segment (start %g %g) (end %g %g) (width %g) (layer %q) (net %d))\n",
		x1, y1, x2, y2, width, layer, f.code(net)))
	return f
}

func (f *fixture) via(net string, x, y float64) *fixture {
	f.items = append(f.items, fmt.Sprintf(
		"\t(via (at %g %g) (size 0.6) (drill 0.3) (layers \"F.Cu\" \"B.Cu\") (net %d))\n",
		x, y, f.code(net)))
	return f
}

// pad adds a one pad footprint with a rectangular pad on its anchor.
func (f *fixture) pad(ref, net string, x, y, w, h float64, layer string) *fixture {
	return f.footprint(ref, "TP", layer, x, y, "smd", padSpec{"1", net, 0, 0, w, h})
}

type padSpec struct {
	number string
	net    string
	dx, dy float64
	w, h   float64
}

func (f *fixture) footprint(ref, value, layer string, x, y float64, attr string, pads ...padSpec) *fixture {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\t(footprint \"Test:%s\" (layer %q) (at %g %g)\n", ref, layer, x, y)
	fmt.Fprintf(&sb, "\t\t(property \"Reference\" %q (at 0 0) (layer \"F.SilkS\"))\n", ref)
	fmt.Fprintf(&sb, "\t\t(property \"Value\" %q (at 0 0) (layer \"F.Fab\"))\n", value)
	if attr != "" {
		fmt.Fprintf(&sb, "\t\t(attr %s)\n", attr)
	}
	mask := "F.Mask"
	if layer == pcb.BackCopper {
		mask = "B.Mask"
	}
	for _, p := range pads {
		fmt.Fprintf(&sb, "\t\t(pad %q smd rect (at %g %g) (size %g %g) (layers %q %q) (net %d %q))\n",
			p.number, p.dx, p.dy, p.w, p.h, layer, mask, f.code(p.net), p.net)
	}
	sb.WriteString("\t)\n")
	f.items = append(f.items, sb.String())
	return f
}

func (f *fixture) raw(item string) *fixture {
	f.items = append(f.items, "\t"+item+"\n")
	return f
}

func (f *fixture) String() string {
	var sb strings.Builder
	sb.WriteString(boardHead)
	sb.WriteString("\t(net 0 \"\")\n")
	for i, n := range f.nets {
		fmt.Fprintf(&sb, "\t(net %d %q)\n", i+1, n)
	}
	for class, nets := range f.classes {
		fmt.Fprintf(&sb, "\t(net_class %q \"\"", class)
		for _, n := range nets {
			fmt.Fprintf(&sb, " (add_net %q)", n)
		}
		sb.WriteString(")\n")
	}
	for _, item := range f.items {
		sb.WriteString(item)
	}
	sb.WriteString(")\n")
	return sb.String()
}

func (f *fixture) board(t *testing.T) *pcb.Board {
	t.Helper()
	b, err := pcb.Parse(strings.NewReader(f.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v\n%s", err, f)
	}
	return b
}

// write stores the board in a temporary directory and returns its path.
func (f *fixture) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.kicad_pcb")
	if err := os.WriteFile(path, []byte(f.String()), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func newSlice(t *testing.T, b *pcb.Board, nets ...string) *Slice {
	t.Helper()
	s, err := New(b, nets)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

// clkFixture is a 10 mm CLK trace between two 2x1 mm pads.
func clkFixture() *fixture {
	return newFixture("CLK").
		class("50Ohm-SE", "CLK").
		pad("U1", "CLK", 0, 0, 2, 1, pcb.FrontCopper).
		pad("U2", "CLK", 10, 0, 2, 1, pcb.FrontCopper).
		segment("CLK", 0, 0, 10, 0, 0.2, pcb.FrontCopper)
}

// portsByNumber maps the SP<n> footprints of a board to their positions.
func portsByNumber(b *pcb.Board) map[string]*pcb.Footprint {
	ports := make(map[string]*pcb.Footprint)
	for _, id := range b.Footprints() {
		fp := b.Footprint(id)
		if PortReference.MatchString(fp.Reference) {
			ports[fp.Reference] = fp
		}
	}
	return ports
}

func vias(b *pcb.Board) []*pcb.Track {
	var out []*pcb.Track
	for _, id := range b.Tracks() {
		if t := b.Track(id); t.IsVia() {
			out = append(out, t)
		}
	}
	return out
}

func assertPoint(t *testing.T, what string, got, want geom.Point) {
	t.Helper()
	if !scalar.EqualWithinAbs(got.X, want.X, tol) || !scalar.EqualWithinAbs(got.Y, want.Y, tol) {
		t.Errorf("%s = (%v, %v), want (%v, %v)", what, got.X, got.Y, want.X, want.Y)
	}
}

func assertFloat(t *testing.T, what string, got, want float64) {
	t.Helper()
	if !scalar.EqualWithinAbs(got, want, tol) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}
