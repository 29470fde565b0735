package pcb

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// TrackKind distinguishes the three kinds of copper tracks.
type TrackKind int

const (
	KindSegment TrackKind = iota
	KindVia
	KindArc
)

func (k TrackKind) String() string {
	switch k {
	case KindVia:
		return "via"
	case KindArc:
		return "arc"
	}
	return "segment"
}

// Via types. The empty type is a through via.
const (
	ViaThrough = ""
	ViaBlind   = "blind"
	ViaMicro   = "micro"
)

// Track is a copper segment, arc or via. For vias Start and End are both
// the via center and Width is the via diameter.
type Track struct {
	Kind    TrackKind
	Start   Position
	Mid     Position // arcs only
	End     Position
	Width   float64  // Track width (or via diameter) in mm
	Layer   string   // Layer name; first layer of the pair for vias
	Layers  LayerSet // via layer pair
	Net     int      // Net code
	Drill   float64  // via drill
	ViaType string
	Locked  bool

	node *kicadsexp.List
}

// IsVia reports whether the track is a via.
func (t *Track) IsVia() bool {
	return t.Kind == KindVia
}

// OnLayer reports whether the track has copper on layer.
func (t *Track) OnLayer(layer string) bool {
	if t.IsVia() {
		return t.Layers.Has(layer) || t.ViaType == ViaThrough
	}
	return t.Layer == layer
}

// Length returns the routed length in mm. Vias have no length.
func (t *Track) Length() float64 {
	switch t.Kind {
	case KindVia:
		return 0
	case KindArc:
		return arcLength(t.Start, t.Mid, t.End)
	}
	return t.Start.Distance(t.End)
}

// arcLength measures the arc through start, mid and end.
func arcLength(start, mid, end Position) float64 {
	ax, ay := start.X, start.Y
	bx, by := mid.X, mid.Y
	cx, cy := end.X, end.Y
	d := 2 * (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by))
	if math.Abs(d) < 1e-12 {
		// Collinear points, treat as a straight segment
		return start.Distance(end)
	}
	a2 := ax*ax + ay*ay
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	center := Position{
		X: (a2*(by-cy) + b2*(cy-ay) + c2*(ay-by)) / d,
		Y: (a2*(cx-bx) + b2*(ax-cx) + c2*(bx-ax)) / d,
	}
	r := center.Distance(start)
	sweep := func(p, q Position) float64 {
		a := math.Atan2(p.Y-center.Y, p.X-center.X)
		b := math.Atan2(q.Y-center.Y, q.X-center.X)
		s := b - a
		for s < 0 {
			s += 2 * math.Pi
		}
		return s
	}
	// Go around the way that passes through mid
	total := sweep(start, end)
	if sweep(start, mid) > total {
		total = 2*math.Pi - total
	}
	return r * total
}

// decodeTrack parses (segment ...), (arc ...) and (via ...) nodes.
func (b *Board) decodeTrack(node *kicadsexp.List) (*Track, error) {
	name, _ := sexp.NodeName(node)
	t := &Track{node: node, Locked: sexp.HasSymbol(node, "locked") || sexp.ChildString(node, "locked") == "yes"}

	switch name {
	case "segment", "arc":
		t.Kind = KindSegment
		if name == "arc" {
			t.Kind = KindArc
			mid, err := sexp.FindPositionXY(node, "mid")
			if err != nil {
				return nil, err
			}
			t.Mid = mid
		}
		start, err := sexp.FindPositionXY(node, "start")
		if err != nil {
			return nil, err
		}
		end, err := sexp.FindPositionXY(node, "end")
		if err != nil {
			return nil, err
		}
		t.Start, t.End = start, end
		t.Width, _ = sexp.ChildFloat(node, "width")
		t.Layer = sexp.ChildString(node, "layer")

	case "via":
		t.Kind = KindVia
		atNode, ok := sexp.FindNode(node, "at")
		if !ok {
			return nil, fmt.Errorf("via missing 'at'")
		}
		at, err := sexp.GetPositionXY(atNode)
		if err != nil {
			return nil, err
		}
		t.Start, t.End = at, at
		t.Width, _ = sexp.ChildFloat(node, "size")
		t.Drill, _ = sexp.ChildFloat(node, "drill")
		if layersNode, ok := sexp.FindNode(node, "layers"); ok {
			t.Layers = sexp.GetLayers(layersNode)
		}
		if len(t.Layers) > 0 {
			t.Layer = t.Layers[0]
		}
		switch {
		case sexp.HasSymbol(node, ViaBlind):
			t.ViaType = ViaBlind
		case sexp.HasSymbol(node, ViaMicro):
			t.ViaType = ViaMicro
		}

	default:
		return nil, fmt.Errorf("not a track node: %s", name)
	}

	t.Net = b.decodeNetRef(node)
	return t, nil
}

// decodeNetRef reads a (net N ["name"]) child, or the newer (net "name").
func (b *Board) decodeNetRef(node *kicadsexp.List) int {
	netNode, ok := sexp.FindNode(node, "net")
	if !ok {
		return 0
	}
	if code, err := sexp.GetInt(netNode, 1); err == nil {
		return code
	}
	if name, err := sexp.GetString(netNode, 1); err == nil && name != "" {
		return b.AddNet(name).Number
	}
	return 0
}

// syncTrack writes the model back into the node, creating it when needed.
func (b *Board) syncTrack(t *Track) {
	if t.node == nil {
		t.node = kicadsexp.Node(t.Kind.String())
		switch t.Kind {
		case KindVia:
			if t.ViaType != ViaThrough {
				t.node.Append(kicadsexp.Symbol(t.ViaType))
			}
			t.node.Append(
				sexp.XY("at", t.Start),
				kicadsexp.Node("size", kicadsexp.Float(t.Width)),
				kicadsexp.Node("drill", kicadsexp.Float(t.Drill)),
				kicadsexp.Node("layers"),
				kicadsexp.Node("net"),
			)
		case KindArc:
			t.node.Append(sexp.XY("start", t.Start), sexp.XY("mid", t.Mid), sexp.XY("end", t.End),
				kicadsexp.Node("width"), kicadsexp.Node("layer"), kicadsexp.Node("net"))
		default:
			t.node.Append(sexp.XY("start", t.Start), sexp.XY("end", t.End),
				kicadsexp.Node("width"), kicadsexp.Node("layer"), kicadsexp.Node("net"))
		}
		t.node.Append(newUUID(b.uuidKey()))
	}

	n := t.node
	switch t.Kind {
	case KindVia:
		sexp.SetChild(n, "at", kicadsexp.Float(t.Start.X), kicadsexp.Float(t.Start.Y))
		sexp.SetChild(n, "size", kicadsexp.Float(t.Width))
		sexp.SetChild(n, "drill", kicadsexp.Float(t.Drill))
		layers := make([]kicadsexp.Sexp, len(t.Layers))
		for i, l := range t.Layers {
			layers[i] = kicadsexp.Quoted(l)
		}
		sexp.SetChild(n, "layers", layers...)
	default:
		if t.Kind == KindSegment && sexp.IsNode(n, KindArc.String()) {
			n.Set(0, kicadsexp.Symbol(KindSegment.String()))
			sexp.RemoveChildren(n, "mid")
		}
		sexp.SetChild(n, "start", kicadsexp.Float(t.Start.X), kicadsexp.Float(t.Start.Y))
		if t.Kind == KindArc {
			sexp.SetChild(n, "mid", kicadsexp.Float(t.Mid.X), kicadsexp.Float(t.Mid.Y))
		}
		sexp.SetChild(n, "end", kicadsexp.Float(t.End.X), kicadsexp.Float(t.End.Y))
		sexp.SetChild(n, "width", kicadsexp.Float(t.Width))
		sexp.SetChild(n, "layer", kicadsexp.Quoted(t.Layer))
	}
	b.syncNetRef(n, t.Net, false)
}

// syncNetRef writes (net N), or (net N "name") for pads.
func (b *Board) syncNetRef(node *kicadsexp.List, code int, withName bool) {
	if netNode, ok := sexp.FindNode(node, "net"); ok {
		if _, err := sexp.GetInt(netNode, 1); err != nil && netNode.Len() > 1 {
			// Name keyed format
			sexp.SetValues(netNode, kicadsexp.Quoted(b.NetName(code)))
			return
		}
	}
	if withName {
		if code == 0 {
			sexp.RemoveChildren(node, "net")
			return
		}
		sexp.SetChild(node, "net", kicadsexp.Int(code), kicadsexp.Quoted(b.NetName(code)))
		return
	}
	sexp.SetChild(node, "net", kicadsexp.Int(code))
}
