package pcb

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Island removal modes, as stored in (island_removal_mode N).
const (
	IslandsRemoveAlways = 0
	IslandsRemoveNever  = 1
	IslandsRemoveArea   = 2
)

// Zone represents a copper zone
type Zone struct {
	Net           int        // Connected net code
	Layers        LayerSet   // Layers the zone is poured on
	Outline       []Position // Zone outline polygon
	Filled        bool       // Whether the zone carries fill data
	IslandRemoval int

	node *kicadsexp.List
}

// Area returns the area enclosed by the outline, in mm².
func (z *Zone) Area() float64 {
	n := len(z.Outline)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p, q := z.Outline[i], z.Outline[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// BBox returns the bounding box of the outline.
func (z *Zone) BBox() BoundingBox {
	bbox := NewBoundingBox()
	for _, p := range z.Outline {
		bbox.Expand(p)
	}
	return bbox
}

func (b *Board) decodeZone(node *kicadsexp.List) (*Zone, error) {
	z := &Zone{node: node, IslandRemoval: IslandsRemoveAlways}
	z.Net = b.decodeNetRef(node)
	if z.Net == 0 {
		if name := sexp.ChildString(node, "net_name"); name != "" {
			if n, ok := b.nets.GetByName(name); ok {
				z.Net = n.Number
			}
		}
	}
	if layer := sexp.ChildString(node, "layer"); layer != "" {
		z.Layers = LayerSet{layer}
	} else if layersNode, ok := sexp.FindNode(node, "layers"); ok {
		z.Layers = sexp.GetLayers(layersNode)
	}
	if poly, ok := sexp.FindNode(node, "polygon"); ok {
		if pts, ok := sexp.FindNode(poly, "pts"); ok {
			outline, err := sexp.GetPoints(pts)
			if err != nil {
				return nil, err
			}
			z.Outline = outline
		}
	}
	z.Filled = len(sexp.FindAllNodes(node, "filled_polygon")) > 0
	if fill, ok := sexp.FindNode(node, "fill"); ok && sexp.HasSymbol(fill, "yes") {
		z.Filled = true
	}
	if fill, ok := sexp.FindNode(node, "fill"); ok {
		if mode, ok := sexp.FindNode(fill, "island_removal_mode"); ok {
			if v, err := sexp.GetInt(mode, 1); err == nil {
				z.IslandRemoval = v
			}
		}
	}
	return z, nil
}

func (b *Board) syncZone(z *Zone) {
	n := z.node
	if n == nil {
		return
	}
	b.syncNetRef(n, z.Net, false)
	if _, ok := sexp.FindNode(n, "net_name"); ok {
		sexp.SetChild(n, "net_name", kicadsexp.Quoted(b.NetName(z.Net)))
	}
	if poly, ok := sexp.FindNode(n, "polygon"); ok {
		sexp.SetChild(poly, "pts", sexp.Points(z.Outline).Elements()[1:]...)
	}
	fill, ok := sexp.FindNode(n, "fill")
	if !ok {
		fill = kicadsexp.Node("fill")
		n.Append(fill)
	}
	if !z.Filled {
		sexp.RemoveChildren(n, "filled_polygon")
		sexp.RemoveChildren(n, "fill_segments")
		fill.RemoveFunc(func(e kicadsexp.Sexp) bool {
			return e.IsLeaf() && e.String() == "yes"
		})
	}
	sexp.SetChild(fill, "island_removal_mode", kicadsexp.Int(z.IslandRemoval))
}
