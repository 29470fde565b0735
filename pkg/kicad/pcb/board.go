package pcb

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Board is an editable KiCad board. Elements live in arenas and are
// addressed by handle; the parsed document is kept alongside so that every
// construct the model does not know about survives a save unchanged.
type Board struct {
	Version   int    // File format version
	Generator string // Generator info (e.g., "pcbnew")
	Setup     Setup  // Board setup and configuration

	layers  *LayerMap
	nets    *NetMap
	classes *NetClasses

	tracks     arena[Track]
	footprints arena[Footprint]
	pads       arena[Pad]
	zones      arena[Zone]
	drawings   arena[Drawing]

	root    *kicadsexp.List
	removed []*kicadsexp.List
}

// Setup contains board setup and default values
type Setup struct {
	AuxAxisOrigin Position // Auxiliary axis origin
	auxChanged    bool
}

// arena stores elements behind stable pointers. Removing an element leaves
// a nil slot so handles are never reused.
type arena[T any] struct {
	items []*T
}

func (a *arena[T]) add(v *T) int {
	a.items = append(a.items, v)
	return len(a.items) - 1
}

func (a *arena[T]) get(id int) *T {
	if id < 0 || id >= len(a.items) {
		return nil
	}
	return a.items[id]
}

func (a *arena[T]) remove(id int) *T {
	v := a.get(id)
	if v != nil {
		a.items[id] = nil
	}
	return v
}

func (a *arena[T]) live() []int {
	ids := make([]int, 0, len(a.items))
	for i, v := range a.items {
		if v != nil {
			ids = append(ids, i)
		}
	}
	return ids
}

// NewBoard returns an empty board with a two layer copper stack. It is
// mostly useful for building boards programmatically.
func NewBoard() *Board {
	root := kicadsexp.Node("kicad_pcb",
		kicadsexp.Node("version", kicadsexp.Int(CurrentVersion)),
		kicadsexp.Node("generator", kicadsexp.Quoted("netslice")),
	)
	b := &Board{
		Version:   CurrentVersion,
		Generator: "netslice",
		layers:    NewLayerMap(nil),
		nets:      NewNetMap(nil),
		classes:   NewNetClasses(),
		root:      root,
	}
	layers := kicadsexp.Node("layers")
	for _, l := range []Layer{
		{Number: 0, Name: FrontCopper, Type: "signal"},
		{Number: 31, Name: BackCopper, Type: "signal"},
		{Number: 38, Name: FrontMask, Type: "user"},
		{Number: 39, Name: BackMask, Type: "user"},
		{Number: 42, Name: Eco1User, Type: "user"},
		{Number: 43, Name: Eco2User, Type: "user"},
		{Number: 44, Name: EdgeCuts, Type: "user"},
	} {
		layer := l
		layer.node = kicadsexp.NewList(kicadsexp.Int(l.Number), kicadsexp.Quoted(l.Name), kicadsexp.Symbol(l.Type))
		layers.Append(layer.node)
		b.layers.add(&layer)
	}
	root.Append(layers, kicadsexp.Node("setup"))
	b.AddNet("")
	return b
}

// Root returns the underlying document.
func (b *Board) Root() *kicadsexp.List {
	return b.root
}

// Layers returns the layer table.
func (b *Board) Layers() *LayerMap {
	return b.layers
}

// Nets returns the net table.
func (b *Board) Nets() *NetMap {
	return b.nets
}

// NetClasses returns the net class assignments used by NetClassName.
func (b *Board) NetClasses() *NetClasses {
	return b.classes
}

// SetNetClasses replaces the net class assignments.
func (b *Board) SetNetClasses(nc *NetClasses) {
	if nc == nil {
		nc = NewNetClasses()
	}
	b.classes = nc
}

// Net related lookups

// NetByName returns the net with the given name.
func (b *Board) NetByName(name string) (*Net, bool) {
	return b.nets.GetByName(name)
}

// NetName returns the name of a net code, or "" for unknown codes.
func (b *Board) NetName(code int) string {
	if n, ok := b.nets.GetByNumber(code); ok {
		return n.Name
	}
	return ""
}

// AddNet returns the net called name, declaring it when missing.
func (b *Board) AddNet(name string) *Net {
	if name != "" {
		if n, ok := b.nets.GetByName(name); ok {
			return n
		}
	} else if n, ok := b.nets.GetByNumber(0); ok {
		return n
	}
	n := &Net{Number: b.nets.nextNumber(), Name: name}
	b.nets.add(n)
	return n
}

// GroundNet returns the GND net, creating it when the board has none.
func (b *Board) GroundNet() *Net {
	return b.AddNet(GroundNetName)
}

// NetClassName returns the class of the net with the given code.
func (b *Board) NetClassName(code int) string {
	return b.classes.ClassOf(b.NetName(code))
}

// SetNetClass assigns a net, by name, to a net class.
func (b *Board) SetNetClass(netName, class string) {
	b.classes.Assign(netName, class)
}

// Layer related lookups

// CopperLayerCount returns the number of copper layers.
func (b *Board) CopperLayerCount() int {
	return len(b.layers.Copper())
}

// CopperIndex returns the position of a copper layer in the stack, 0 being
// F.Cu and CopperLayerCount()-1 being B.Cu. It returns -1 for other layers.
func (b *Board) CopperIndex(name string) int {
	for i, l := range b.layers.Copper() {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// CopperLayerName is the inverse of CopperIndex.
func (b *Board) CopperLayerName(index int) string {
	stack := b.layers.Copper()
	if index < 0 || index >= len(stack) {
		return ""
	}
	return stack[index].Name
}

// RenameInnerLayers drops user defined names from the inner copper layers
// so they read In1.Cu, In2.Cu and so on.
func (b *Board) RenameInnerLayers() {
	for _, l := range b.layers.Copper() {
		if l.Name == FrontCopper || l.Name == BackCopper {
			continue
		}
		l.UserName = ""
		if l.node != nil && l.node.Len() > 3 {
			l.node.Truncate(3)
		}
	}
}

// SetAuxOrigin moves the auxiliary axis origin.
func (b *Board) SetAuxOrigin(p Position) {
	b.Setup.AuxAxisOrigin = p
	b.Setup.auxChanged = true
}

// Tracks

// Tracks returns the handles of every live track, via and arc in file order.
func (b *Board) Tracks() []TrackID {
	return toIDs[TrackID](b.tracks.live())
}

// Track resolves a handle. It returns nil for deleted tracks.
func (b *Board) Track(id TrackID) *Track {
	return b.tracks.get(int(id))
}

// AddTrack appends a new track to the board.
func (b *Board) AddTrack(t Track) TrackID {
	t.node = nil
	return TrackID(b.tracks.add(&t))
}

// DeleteTrack removes a track. Deleting twice is a no-op.
func (b *Board) DeleteTrack(id TrackID) {
	if t := b.tracks.remove(int(id)); t != nil && t.node != nil {
		b.removed = append(b.removed, t.node)
	}
}

// Footprints and pads

// Footprints returns the handles of every live footprint.
func (b *Board) Footprints() []FootprintID {
	return toIDs[FootprintID](b.footprints.live())
}

// Footprint resolves a handle. It returns nil for deleted footprints.
func (b *Board) Footprint(id FootprintID) *Footprint {
	return b.footprints.get(int(id))
}

// Pads returns the handles of every pad of every live footprint.
func (b *Board) Pads() []PadID {
	var ids []PadID
	for _, fid := range b.Footprints() {
		ids = append(ids, b.footprints.get(int(fid)).pads...)
	}
	return ids
}

// Pad resolves a handle. It returns nil once the owning footprint is deleted.
func (b *Board) Pad(id PadID) *Pad {
	return b.pads.get(int(id))
}

// FootprintPads returns the pads of a footprint in file order.
func (b *Board) FootprintPads(id FootprintID) []PadID {
	fp := b.Footprint(id)
	if fp == nil {
		return nil
	}
	return fp.pads
}

// AddFootprint adds a new footprint together with its pads.
func (b *Board) AddFootprint(fp Footprint, pads ...Pad) FootprintID {
	fp.node = nil
	fp.pads = nil
	id := FootprintID(b.footprints.add(&fp))
	for _, p := range pads {
		b.attachPad(id, p, nil)
	}
	return id
}

func (b *Board) attachPad(id FootprintID, p Pad, node *kicadsexp.List) PadID {
	fp := b.footprints.get(int(id))
	p.Footprint = id
	p.node = node
	pid := PadID(b.pads.add(&p))
	fp.pads = append(fp.pads, pid)
	return pid
}

// DeleteFootprint removes a footprint and its pads.
func (b *Board) DeleteFootprint(id FootprintID) {
	fp := b.footprints.remove(int(id))
	if fp == nil {
		return
	}
	for _, pid := range fp.pads {
		b.pads.remove(int(pid))
	}
	if fp.node != nil {
		b.removed = append(b.removed, fp.node)
	}
}

// ExtractPad creates a stand-alone footprint holding a copy of one pad. The
// new footprint sits on the pad center with no rotation and keeps the
// reference and value of the original, hidden.
func (b *Board) ExtractPad(id PadID) (FootprintID, error) {
	pad := b.Pad(id)
	if pad == nil {
		return 0, fmt.Errorf("pad %d does not exist", id)
	}
	owner := b.Footprint(pad.Footprint)
	center := b.PadPosition(id)

	fp := Footprint{
		Name:       owner.Name,
		Layer:      owner.Layer,
		Position:   center,
		Reference:  owner.Reference,
		Value:      owner.Value,
		Attributes: append([]string(nil), owner.Attributes...),
	}
	var node *kicadsexp.List
	if owner.node != nil {
		node = kicadsexp.Clone(owner.node).(*kicadsexp.List)
		node.RemoveFunc(func(e kicadsexp.Sexp) bool {
			name, err := sexp.NodeName(e)
			if err != nil {
				return false
			}
			switch name {
			case "pad", "fp_line", "fp_rect", "fp_circle", "fp_arc", "fp_poly", "fp_curve", "model", "zone", "group":
				return true
			}
			return false
		})
		hideTexts(node)
		refreshUUID(node)
	}

	fid := FootprintID(b.footprints.add(&fp))
	b.footprints.get(int(fid)).node = node

	clone := *pad
	clone.Offset = Position{}
	var padNode *kicadsexp.List
	if pad.node != nil && node != nil {
		padNode = kicadsexp.Clone(pad.node).(*kicadsexp.List)
		refreshUUID(padNode)
		node.Append(padNode)
	}
	b.attachPad(fid, clone, padNode)
	return fid, nil
}

// PlaceFootprint instantiates a footprint library node at the given spot.
// template is not modified.
func (b *Board) PlaceFootprint(template *kicadsexp.List, pos Position, angle Angle, reference string) (FootprintID, error) {
	node := kicadsexp.Clone(template).(*kicadsexp.List)
	if sexp.IsNode(node, "module") {
		node.Set(0, kicadsexp.Symbol("footprint"))
	}
	if !sexp.IsNode(node, "footprint") {
		return 0, fmt.Errorf("expected (footprint ...) template")
	}
	// Library only headers
	for _, key := range []string{"version", "generator", "generator_version"} {
		sexp.RemoveChildren(node, key)
	}
	refreshUUID(node)
	fp, pads, err := b.decodeFootprint(node)
	if err != nil {
		return 0, fmt.Errorf("failed to decode footprint template: %w", err)
	}
	fp.Position = pos
	fp.Angle = angle
	fp.Reference = reference
	id := FootprintID(b.footprints.add(fp))
	for i := range pads {
		p := pads[i]
		p.Angle += angle
		b.attachPad(id, p, p.node)
	}
	return id, nil
}

// Zones

// Zones returns the handles of every live zone.
func (b *Board) Zones() []ZoneID {
	return toIDs[ZoneID](b.zones.live())
}

// Zone resolves a handle.
func (b *Board) Zone(id ZoneID) *Zone {
	return b.zones.get(int(id))
}

// DeleteZone removes a zone.
func (b *Board) DeleteZone(id ZoneID) {
	if z := b.zones.remove(int(id)); z != nil && z.node != nil {
		b.removed = append(b.removed, z.node)
	}
}

// Drawings

// Drawings returns the handles of every live board drawing.
func (b *Board) Drawings() []DrawingID {
	return toIDs[DrawingID](b.drawings.live())
}

// Drawing resolves a handle.
func (b *Board) Drawing(id DrawingID) *Drawing {
	return b.drawings.get(int(id))
}

// AddDrawing appends a new drawing to the board.
func (b *Board) AddDrawing(d Drawing) DrawingID {
	d.node = nil
	return DrawingID(b.drawings.add(&d))
}

// DeleteDrawing removes a drawing.
func (b *Board) DeleteDrawing(id DrawingID) {
	if d := b.drawings.remove(int(id)); d != nil && d.node != nil {
		b.removed = append(b.removed, d.node)
	}
}

func toIDs[ID ~int](ids []int) []ID {
	out := make([]ID, len(ids))
	for i, id := range ids {
		out[i] = ID(id)
	}
	return out
}

// uuidKey is the identifier keyword of the board's file format.
func (b *Board) uuidKey() string {
	if b.Version >= uuidVersion {
		return "uuid"
	}
	return "tstamp"
}

func newUUID(key string) *kicadsexp.List {
	return kicadsexp.Node(key, kicadsexp.Quoted(uuid.NewString()))
}

// refreshUUID gives a copied node and its children fresh identifiers.
func refreshUUID(node *kicadsexp.List) {
	for _, e := range node.Elements() {
		child, ok := e.(*kicadsexp.List)
		if !ok {
			continue
		}
		if sexp.IsNode(child, "uuid") || sexp.IsNode(child, "tstamp") {
			sexp.SetValues(child, kicadsexp.Quoted(uuid.NewString()))
			continue
		}
		refreshUUID(child)
	}
}

// hideTexts hides the reference and value texts of a footprint node.
func hideTexts(node *kicadsexp.List) {
	for _, e := range node.Elements() {
		child, ok := e.(*kicadsexp.List)
		if !ok {
			continue
		}
		switch {
		case sexp.IsNode(child, "fp_text"):
			kind, _ := sexp.GetString(child, 1)
			if (kind == "reference" || kind == "value") && !sexp.HasSymbol(child, "hide") {
				child.Append(kicadsexp.Symbol("hide"))
			}
		case sexp.IsNode(child, "property"):
			name, _ := sexp.GetString(child, 1)
			if name == "Reference" || name == "Value" {
				sexp.SetChild(child, "hide", kicadsexp.Bool(true))
			}
		}
	}
}
