package pcb

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Drawing is a board level graphic: a gr_* shape, text, dimension or target.
type Drawing struct {
	Kind   string // Node name without the gr_ prefix (line, rect, circle, ...)
	Layer  string // Layer name
	Start  Position
	End    Position
	Points []Position
	Width  float64

	node *kicadsexp.List
}

// Position returns the anchor of the drawing: the start point of lines,
// rectangles and arcs, the center of circles, the first vertex of polygons
// and the location of texts.
func (d *Drawing) Position() Position {
	if d.Kind == "poly" && len(d.Points) > 0 {
		return d.Points[0]
	}
	return d.Start
}

// IsDrawingNode reports whether a root child is a board drawing.
func IsDrawingNode(node kicadsexp.Sexp) bool {
	name, err := sexp.NodeName(node)
	if err != nil {
		return false
	}
	return strings.HasPrefix(name, "gr_") || name == "dimension" || name == "target"
}

func (b *Board) decodeDrawing(node *kicadsexp.List) *Drawing {
	name, _ := sexp.NodeName(node)
	d := &Drawing{Kind: strings.TrimPrefix(name, "gr_"), node: node}
	if layerNode, ok := sexp.FindNode(node, "layer"); ok {
		d.Layer, _ = sexp.GetString(layerNode, 1)
	}
	for _, key := range []string{"start", "center", "at"} {
		if p, err := sexp.FindPositionXY(node, key); err == nil {
			d.Start = p
			break
		}
	}
	if p, err := sexp.FindPositionXY(node, "end"); err == nil {
		d.End = p
	}
	if pts, ok := sexp.FindNode(node, "pts"); ok {
		d.Points, _ = sexp.GetPoints(pts)
		if len(d.Points) > 0 && d.Kind != "poly" {
			d.Start = d.Points[0]
		}
	}
	if stroke, ok := sexp.FindNode(node, "stroke"); ok {
		d.Width, _ = sexp.ChildFloat(stroke, "width")
	} else {
		d.Width, _ = sexp.ChildFloat(node, "width")
	}
	return d
}

func (b *Board) syncDrawing(d *Drawing) {
	if d.node == nil {
		d.node = b.graphicNode(d.Kind, d.Layer, d.Start, d.End, d.Width, "gr")
	}
}
