package pcb

import (
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Shared types (aliases to sexp package)
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type BoundingBox = sexp.BoundingBox

// Re-export BoundingBox constructor
var NewBoundingBox = sexp.NewBoundingBox

// Handles into the board arenas. A handle stays valid until the element it
// names is deleted; deleted handles resolve to nil.
type (
	TrackID     int
	FootprintID int
	PadID       int
	ZoneID      int
	DrawingID   int
)

// Layer names used throughout the engine.
const (
	FrontCopper = "F.Cu"
	BackCopper  = "B.Cu"
	EdgeCuts    = "Edge.Cuts"
	FrontMask   = "F.Mask"
	BackMask    = "B.Mask"
	Eco1User    = "Eco1.User"
	Eco2User    = "Eco2.User"
	AllCopper   = "*.Cu"
)

// GroundNetName is the net zones and ground vias are tied to.
const GroundNetName = "GND"

// Layer represents a PCB layer
type Layer struct {
	Number   int    // Layer number (ordinal)
	Name     string // Canonical layer name (e.g., "F.Cu", "In1.Cu")
	Type     string // Layer type (e.g., "signal", "user")
	UserName string // Optional user defined name

	node *kicadsexp.List
}

// IsCopper reports whether the layer carries copper.
func (l *Layer) IsCopper() bool {
	return IsCopperName(l.Name)
}

// IsCopperName reports whether a layer name denotes a copper layer.
func IsCopperName(name string) bool {
	return strings.HasSuffix(name, ".Cu")
}

// IsMaskName reports whether a layer name denotes a solder mask layer.
func IsMaskName(name string) bool {
	return name == FrontMask || name == BackMask
}

// innerIndex returns k for "In<k>.Cu", or 0 when name is not an inner layer.
func innerIndex(name string) int {
	if !strings.HasPrefix(name, "In") || !strings.HasSuffix(name, ".Cu") {
		return 0
	}
	k, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "In"), ".Cu"))
	if err != nil {
		return 0
	}
	return k
}

// LayerSet represents a set of layers
type LayerSet []string

// Has reports whether the set contains name, honoring "*.Cu" style wildcards.
func (ls LayerSet) Has(name string) bool {
	for _, l := range ls {
		if l == name {
			return true
		}
		if strings.HasPrefix(l, "*.") && strings.HasSuffix(name, l[1:]) {
			return true
		}
		if strings.HasPrefix(l, "F&B.") && (name == "F."+l[4:] || name == "B."+l[4:]) {
			return true
		}
	}
	return false
}

// LayerMap provides efficient lookup of layers by number or name
type LayerMap struct {
	layers   []*Layer
	byNumber map[int]*Layer
	byName   map[string]*Layer
}

// NewLayerMap creates a LayerMap from a slice of layers
func NewLayerMap(layers []*Layer) *LayerMap {
	lm := &LayerMap{
		byNumber: make(map[int]*Layer),
		byName:   make(map[string]*Layer),
	}
	for _, layer := range layers {
		lm.add(layer)
	}
	return lm
}

func (lm *LayerMap) add(layer *Layer) {
	lm.layers = append(lm.layers, layer)
	lm.byNumber[layer.Number] = layer
	lm.byName[layer.Name] = layer
}

// GetByName retrieves a layer by its name (e.g., "F.Cu")
func (lm *LayerMap) GetByName(name string) (*Layer, bool) {
	layer, ok := lm.byName[name]
	return layer, ok
}

// GetByNumber retrieves a layer by its number
func (lm *LayerMap) GetByNumber(num int) (*Layer, bool) {
	layer, ok := lm.byNumber[num]
	return layer, ok
}

// IsCopperLayer checks if a layer is a copper layer
func (lm *LayerMap) IsCopperLayer(name string) bool {
	layer, ok := lm.byName[name]
	if !ok {
		return false
	}
	return layer.IsCopper() && (layer.Type == "signal" || layer.Type == "power" || layer.Type == "mixed" || layer.Type == "jumper")
}

// Copper returns the copper stack from top to bottom: F.Cu, the inner
// layers in order, then B.Cu.
func (lm *LayerMap) Copper() []*Layer {
	var front, back *Layer
	var inner []*Layer
	for _, l := range lm.layers {
		switch {
		case l.Name == FrontCopper:
			front = l
		case l.Name == BackCopper:
			back = l
		case innerIndex(l.Name) > 0:
			inner = append(inner, l)
		}
	}
	sort.SliceStable(inner, func(i, j int) bool {
		return innerIndex(inner[i].Name) < innerIndex(inner[j].Name)
	})
	var stack []*Layer
	if front != nil {
		stack = append(stack, front)
	}
	stack = append(stack, inner...)
	if back != nil {
		stack = append(stack, back)
	}
	return stack
}

// All returns every layer in file order.
func (lm *LayerMap) All() []*Layer {
	return lm.layers
}

// Net represents an electrical net
type Net struct {
	Number int    // Net number (ordinal)
	Name   string // Net name

	node *kicadsexp.List
}

// NetMap provides efficient lookup of nets by number or name
type NetMap struct {
	nets     []*Net
	byNumber map[int]*Net
	byName   map[string]*Net
}

// NewNetMap creates a NetMap from a slice of nets
func NewNetMap(nets []*Net) *NetMap {
	nm := &NetMap{
		byNumber: make(map[int]*Net),
		byName:   make(map[string]*Net),
	}
	for _, net := range nets {
		nm.add(net)
	}
	return nm
}

func (nm *NetMap) add(net *Net) {
	nm.nets = append(nm.nets, net)
	nm.byNumber[net.Number] = net
	// Only index non-empty names
	if net.Name != "" {
		nm.byName[net.Name] = net
	}
}

// GetByName retrieves a net by its name (e.g., "GND", "+5V")
func (nm *NetMap) GetByName(name string) (*Net, bool) {
	net, ok := nm.byName[name]
	return net, ok
}

// GetByNumber retrieves a net by its number
func (nm *NetMap) GetByNumber(num int) (*Net, bool) {
	net, ok := nm.byNumber[num]
	return net, ok
}

// IsUnconnected checks if a net number represents an unconnected net
// In KiCad, net 0 is reserved for unconnected pins
func (nm *NetMap) IsUnconnected(num int) bool {
	return num == 0
}

// All returns the nets in table order.
func (nm *NetMap) All() []*Net {
	return nm.nets
}

func (nm *NetMap) nextNumber() int {
	next := 0
	for n := range nm.byNumber {
		if n >= next {
			next = n + 1
		}
	}
	return next
}
