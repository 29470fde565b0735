package pcb

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Footprint represents a component footprint
type Footprint struct {
	Name       string    // Library identifier ("library:name")
	Layer      string    // Layer (F.Cu or B.Cu typically)
	Position   Position  // Anchor position
	Angle      Angle     // Rotation in degrees
	Reference  string    // Reference designator (e.g., "R1")
	Value      string    // Component value
	Attributes []string  // (attr ...) flags such as smd or exclude_from_bom
	Graphics   []Graphic // Footprint drawings in local coordinates

	pads []PadID
	node *kicadsexp.List
}

// HasAttribute reports whether the footprint carries an (attr ...) flag.
func (fp *Footprint) HasAttribute(name string) bool {
	for _, a := range fp.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// TransformPosition transforms a relative position by footprint position and rotation
func (fp *Footprint) TransformPosition(rel Position) Position {
	return rel.Rotate(float64(fp.Angle)).Add(fp.Position)
}

// Graphic is a footprint drawing. Only the shapes the engine creates are
// modeled; everything else stays in the document untouched.
type Graphic struct {
	Kind  string // fp_rect or fp_line
	Layer string
	Start Position
	End   Position
	Width float64

	node *kicadsexp.List
}

// Pad represents a footprint pad
type Pad struct {
	Footprint FootprintID // Owning footprint
	Number    string      // Pad number/name
	Type      string      // Pad type (thru_hole, smd, etc.)
	Shape     string      // Pad shape (circle, rect, oval, etc.)
	Offset    Position    // Position relative to the footprint anchor
	Angle     Angle       // Absolute rotation in degrees
	Size      Size        // Pad size
	Drill     float64     // Drill diameter (0 for SMD)
	Layers    LayerSet    // Layers the pad appears on
	Net       int         // Net code

	node *kicadsexp.List
}

// IsRectangular reports whether the pad belongs to the rectangle family.
func (p *Pad) IsRectangular() bool {
	return p.Shape == "rect" || p.Shape == "roundrect"
}

// Pad geometry

// PadPosition returns the absolute center of a pad.
func (b *Board) PadPosition(id PadID) Position {
	pad := b.Pad(id)
	if pad == nil {
		return Position{}
	}
	fp := b.Footprint(pad.Footprint)
	return fp.TransformPosition(pad.Offset)
}

// PadLayer returns the copper side a pad is mounted on.
func (b *Board) PadLayer(id PadID) string {
	pad := b.Pad(id)
	if pad == nil {
		return ""
	}
	side := b.Footprint(pad.Footprint).Layer
	if side != BackCopper {
		side = FrontCopper
	}
	if pad.Layers.Has(side) {
		return side
	}
	for _, l := range pad.Layers {
		if IsCopperName(l) && l[0] != '*' {
			return l
		}
	}
	return side
}

// padCorners returns the rotated corners of the pad outline.
func (b *Board) padCorners(id PadID) [4]Position {
	pad := b.Pad(id)
	center := b.PadPosition(id)
	hw, hh := pad.Size.Width/2, pad.Size.Height/2
	var corners [4]Position
	for i, c := range []Position{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}} {
		corners[i] = c.Rotate(float64(pad.Angle)).Add(center)
	}
	return corners
}

// PadBBox returns the axis aligned bounding box of a pad.
func (b *Board) PadBBox(id PadID) BoundingBox {
	bbox := NewBoundingBox()
	if b.Pad(id) == nil {
		return bbox
	}
	for _, c := range b.padCorners(id) {
		bbox.Expand(c)
	}
	return bbox
}

// PadHitTest reports whether p lies on the copper of a pad.
func (b *Board) PadHitTest(id PadID, p Position) bool {
	const eps = 1e-9
	pad := b.Pad(id)
	if pad == nil {
		return false
	}
	d := p.Sub(b.PadPosition(id))
	local := d.Rotate(-float64(pad.Angle))
	hw, hh := pad.Size.Width/2, pad.Size.Height/2

	switch pad.Shape {
	case "circle":
		return math.Hypot(d.X, d.Y) <= hw+eps
	case "oval":
		// Stadium: distance to the center line of the long axis
		r := math.Min(hw, hh)
		if hw >= hh {
			x := math.Max(math.Abs(local.X)-(hw-r), 0)
			return math.Hypot(x, local.Y) <= r+eps
		}
		y := math.Max(math.Abs(local.Y)-(hh-r), 0)
		return math.Hypot(local.X, y) <= r+eps
	}
	return math.Abs(local.X) <= hw+eps && math.Abs(local.Y) <= hh+eps
}

// FootprintBBox returns the bounding box of the pads of a footprint, or
// just its anchor when it has none.
func (b *Board) FootprintBBox(id FootprintID) BoundingBox {
	bbox := NewBoundingBox()
	fp := b.Footprint(id)
	if fp == nil {
		return bbox
	}
	for _, pid := range fp.pads {
		bbox.ExpandBox(b.PadBBox(pid))
	}
	if len(fp.pads) == 0 {
		bbox.Expand(fp.Position)
	}
	return bbox
}

// FootprintExtent is FootprintBBox grown to cover the modeled graphics.
func (b *Board) FootprintExtent(id FootprintID) BoundingBox {
	bbox := b.FootprintBBox(id)
	fp := b.Footprint(id)
	if fp == nil {
		return bbox
	}
	for _, g := range fp.Graphics {
		for _, c := range []Position{g.Start, g.End, {X: g.Start.X, Y: g.End.Y}, {X: g.End.X, Y: g.Start.Y}} {
			bbox.Expand(fp.TransformPosition(c))
		}
	}
	return bbox
}

// decoding

// decodeFootprint extracts a footprint and its pads from a (footprint ...)
// node. The pads are returned unattached.
func (b *Board) decodeFootprint(node *kicadsexp.List) (*Footprint, []Pad, error) {
	fp := &Footprint{node: node}
	fp.Name, _ = sexp.GetString(node, 1)
	fp.Layer = sexp.ChildString(node, "layer")

	if atNode, ok := sexp.FindNode(node, "at"); ok {
		at, err := sexp.GetPosition(atNode)
		if err != nil {
			return nil, nil, fmt.Errorf("footprint %q: %w", fp.Name, err)
		}
		fp.Position, fp.Angle = at.Position, at.Angle
	}
	if attr, ok := sexp.FindNode(node, "attr"); ok {
		for _, a := range sexp.GetListItems(attr) {
			if a.IsLeaf() {
				fp.Attributes = append(fp.Attributes, a.String())
			}
		}
	}

	for _, e := range node.Elements() {
		child, ok := e.(*kicadsexp.List)
		if !ok {
			continue
		}
		name, _ := sexp.NodeName(child)
		switch name {
		case "property":
			key, _ := sexp.GetString(child, 1)
			value, _ := sexp.GetString(child, 2)
			switch key {
			case "Reference":
				fp.Reference = value
			case "Value":
				fp.Value = value
			}
		case "fp_text":
			kind, _ := sexp.GetString(child, 1)
			value, _ := sexp.GetString(child, 2)
			switch kind {
			case "reference":
				fp.Reference = value
			case "value":
				fp.Value = value
			}
		}
	}

	var pads []Pad
	for _, padNode := range sexp.FindAllNodes(node, "pad") {
		pad, err := b.decodePad(padNode)
		if err != nil {
			return nil, nil, fmt.Errorf("footprint %s: %w", fp.Reference, err)
		}
		pads = append(pads, *pad)
	}
	return fp, pads, nil
}

// decodePad extracts a pad definition from a footprint
// Expected format: (pad "number" type shape (at x y [angle]) (size w h) (layers ...) (net n) ...)
func (b *Board) decodePad(node *kicadsexp.List) (*Pad, error) {
	pad := &Pad{node: node}
	var err error
	if pad.Number, err = sexp.GetString(node, 1); err != nil {
		return nil, fmt.Errorf("failed to parse pad number: %w", err)
	}
	if pad.Type, err = sexp.GetString(node, 2); err != nil {
		return nil, fmt.Errorf("failed to parse pad type: %w", err)
	}
	if pad.Shape, err = sexp.GetString(node, 3); err != nil {
		return nil, fmt.Errorf("failed to parse pad shape: %w", err)
	}

	atNode, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("pad %s: missing required 'at' position", pad.Number)
	}
	at, err := sexp.GetPosition(atNode)
	if err != nil {
		return nil, fmt.Errorf("pad %s: %w", pad.Number, err)
	}
	pad.Offset, pad.Angle = at.Position, at.Angle

	sizeNode, ok := sexp.FindNode(node, "size")
	if !ok {
		return nil, fmt.Errorf("pad %s: missing required 'size' field", pad.Number)
	}
	w, err := sexp.GetFloat(sizeNode, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pad width: %w", err)
	}
	h, err := sexp.GetFloat(sizeNode, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pad height: %w", err)
	}
	pad.Size = Size{Width: w, Height: h}

	// Drill can be just a number or (drill oval w h)
	if drillNode, ok := sexp.FindNode(node, "drill"); ok {
		if d, err := sexp.GetFloat(drillNode, 1); err == nil {
			pad.Drill = d
		} else if d, err := sexp.GetFloat(drillNode, 2); err == nil {
			pad.Drill = d
		}
	}
	if layersNode, ok := sexp.FindNode(node, "layers"); ok {
		pad.Layers = sexp.GetLayers(layersNode)
	}
	pad.Net = b.decodeNetRef(node)
	return pad, nil
}

// encoding

func (b *Board) syncFootprint(fp *Footprint) {
	if fp.node == nil {
		fp.node = kicadsexp.Node("footprint", kicadsexp.Quoted(fp.Name),
			kicadsexp.Node("layer"),
			newUUID(b.uuidKey()),
			kicadsexp.Node("at"),
		)
		b.appendTexts(fp)
		if len(fp.Attributes) > 0 {
			attr := kicadsexp.Node("attr")
			for _, a := range fp.Attributes {
				attr.Append(kicadsexp.Symbol(a))
			}
			fp.node.Append(attr)
		}
	}
	n := fp.node
	sexp.SetChild(n, "layer", kicadsexp.Quoted(fp.Layer))
	at := sexp.At(fp.Position, fp.Angle)
	sexp.SetChild(n, "at", at.Elements()[1:]...)
	b.syncTexts(fp)

	for i := range fp.Graphics {
		g := &fp.Graphics[i]
		if g.node != nil {
			continue
		}
		g.node = b.graphicNode(g.Kind, g.Layer, g.Start, g.End, g.Width, "fp")
		n.Append(g.node)
	}

	for _, pid := range fp.pads {
		pad := b.Pad(pid)
		if pad.node == nil {
			pad.node = b.newPadNode(pad)
			n.Append(pad.node)
		}
		b.syncPad(pad)
	}
}

func (b *Board) appendTexts(fp *Footprint) {
	effects := kicadsexp.Node("effects", kicadsexp.Node("font",
		kicadsexp.Node("size", kicadsexp.Float(1), kicadsexp.Float(1)),
		kicadsexp.Node("thickness", kicadsexp.Float(0.15)),
	))
	if b.Version >= propertyVersion {
		for _, kv := range [][2]string{{"Reference", fp.Reference}, {"Value", fp.Value}} {
			fp.node.Append(kicadsexp.Node("property", kicadsexp.Quoted(kv[0]), kicadsexp.Quoted(kv[1]),
				kicadsexp.Node("at", kicadsexp.Float(0), kicadsexp.Float(0)),
				kicadsexp.Node("layer", kicadsexp.Quoted("F.Fab")),
				kicadsexp.Node("hide", kicadsexp.Bool(true)),
				newUUID("uuid"),
				kicadsexp.Clone(effects),
			))
		}
		return
	}
	for _, kv := range [][2]string{{"reference", fp.Reference}, {"value", fp.Value}} {
		fp.node.Append(kicadsexp.Node("fp_text", kicadsexp.Symbol(kv[0]), kicadsexp.Quoted(kv[1]),
			kicadsexp.Node("at", kicadsexp.Float(0), kicadsexp.Float(0)),
			kicadsexp.Node("layer", kicadsexp.Quoted("F.Fab")),
			kicadsexp.Symbol("hide"),
			kicadsexp.Clone(effects),
			newUUID(b.uuidKey()),
		))
	}
}

// syncTexts writes Reference and Value back to whichever text form the
// node uses.
func (b *Board) syncTexts(fp *Footprint) {
	for _, e := range fp.node.Elements() {
		child, ok := e.(*kicadsexp.List)
		if !ok || child.Len() < 3 {
			continue
		}
		key, _ := sexp.GetString(child, 1)
		switch {
		case sexp.IsNode(child, "property") && key == "Reference",
			sexp.IsNode(child, "fp_text") && key == "reference":
			child.Set(2, kicadsexp.Quoted(fp.Reference))
		case sexp.IsNode(child, "property") && key == "Value",
			sexp.IsNode(child, "fp_text") && key == "value":
			child.Set(2, kicadsexp.Quoted(fp.Value))
		}
	}
}

func (b *Board) newPadNode(pad *Pad) *kicadsexp.List {
	layers := kicadsexp.Node("layers")
	for _, l := range pad.Layers {
		layers.Append(kicadsexp.Quoted(l))
	}
	n := kicadsexp.Node("pad", kicadsexp.Quoted(pad.Number), kicadsexp.Symbol(pad.Type), kicadsexp.Symbol(pad.Shape),
		kicadsexp.Node("at"),
		kicadsexp.Node("size"),
		layers,
	)
	if pad.Drill > 0 {
		n.Append(kicadsexp.Node("drill", kicadsexp.Float(pad.Drill)))
	}
	n.Append(newUUID("uuid"))
	return n
}

func (b *Board) syncPad(pad *Pad) {
	at := sexp.At(pad.Offset, pad.Angle)
	sexp.SetChild(pad.node, "at", at.Elements()[1:]...)
	sexp.SetChild(pad.node, "size", kicadsexp.Float(pad.Size.Width), kicadsexp.Float(pad.Size.Height))
	b.syncNetRef(pad.node, pad.Net, true)
}

// graphicNode builds a gr_* or fp_* shape node.
func (b *Board) graphicNode(kind, layer string, start, end Position, width float64, prefix string) *kicadsexp.List {
	if len(kind) > 3 && kind[2] == '_' {
		kind = kind[3:]
	}
	n := kicadsexp.Node(prefix+"_"+kind, sexp.XY("start", start), sexp.XY("end", end))
	if b.Version >= strokeVersion {
		n.Append(kicadsexp.Node("stroke",
			kicadsexp.Node("width", kicadsexp.Float(width)),
			kicadsexp.Node("type", kicadsexp.Symbol("solid")),
		))
	} else {
		n.Append(kicadsexp.Node("width", kicadsexp.Float(width)))
	}
	if kind == "rect" {
		n.Append(kicadsexp.Node("fill", kicadsexp.Symbol("none")))
	}
	n.Append(kicadsexp.Node("layer", kicadsexp.Quoted(layer)), newUUID(b.uuidKey()))
	return n
}
