package pcb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version (6.0 = 20211014)
const MinSupportedVersion = 20211014

// File format milestones that change what new nodes look like.
const (
	strokeVersion   = 20221018 // (stroke ...) on graphics, KiCad 7
	uuidVersion     = 20240108 // (uuid ...) everywhere, KiCad 8
	propertyVersion = 20240108 // Reference/Value as (property ...), KiCad 8
	CurrentVersion  = 20240108
)

// LoadBoard reads a board file and the net classes of the sibling
// .kicad_pro project, when there is one.
func LoadBoard(path string) (*Board, error) {
	b, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	pro := strings.TrimSuffix(path, filepath.Ext(path)) + ".kicad_pro"
	if err := LoadProjectNetClasses(pro, b.classes); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return b, nil
}

// ParseFile reads and parses a KiCad board file
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad board from an io.Reader
func Parse(r io.Reader) (*Board, error) {
	// Parse s-expressions directly from reader (streaming, no memory limit)
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	// The root should be a (kicad_pcb ...) expression
	root, ok := sexps[0].(*kicadsexp.List)
	if !ok || !sexp.IsNode(root, "kicad_pcb") {
		name, _ := sexp.NodeName(sexps[0])
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got '%s'", name)
	}

	b := &Board{
		root:    root,
		layers:  NewLayerMap(nil),
		nets:    NewNetMap(nil),
		classes: NewNetClasses(),
	}
	if err := b.parseHeader(); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if layersNode, ok := sexp.FindNode(root, "layers"); ok {
		if err := b.parseLayers(layersNode); err != nil {
			return nil, fmt.Errorf("failed to parse layers section: %w", err)
		}
	}
	if setup, ok := sexp.FindNode(root, "setup"); ok {
		if p, err := sexp.FindPositionXY(setup, "aux_axis_origin"); err == nil {
			b.Setup.AuxAxisOrigin = p
		}
	}

	// Nets first so every element can resolve net codes
	for _, netNode := range sexp.FindAllNodes(root, "net") {
		if err := b.parseNet(netNode); err != nil {
			return nil, fmt.Errorf("failed to parse nets: %w", err)
		}
	}
	for _, classNode := range sexp.FindAllNodes(root, "net_class") {
		b.parseNetClass(classNode)
	}

	for _, e := range root.Elements() {
		node, ok := e.(*kicadsexp.List)
		if !ok {
			continue
		}
		name, _ := sexp.NodeName(node)
		switch {
		case name == "segment" || name == "arc" || name == "via":
			t, err := b.decodeTrack(node)
			if err != nil {
				return nil, fmt.Errorf("failed to parse tracks: %w", err)
			}
			b.tracks.add(t)
		case name == "footprint" || name == "module":
			fp, pads, err := b.decodeFootprint(node)
			if err != nil {
				return nil, fmt.Errorf("failed to parse footprints: %w", err)
			}
			id := FootprintID(b.footprints.add(fp))
			for _, p := range pads {
				b.attachPad(id, p, p.node)
			}
		case name == "zone":
			z, err := b.decodeZone(node)
			if err != nil {
				return nil, fmt.Errorf("failed to parse zones: %w", err)
			}
			b.zones.add(z)
		case IsDrawingNode(node):
			b.drawings.add(b.decodeDrawing(node))
		}
	}
	return b, nil
}

// parseHeader extracts version and generator information from the root node
// Expected format: (kicad_pcb (version 20221018) (generator pcbnew) ...)
func (b *Board) parseHeader() error {
	versionNode, found := sexp.FindNode(b.root, "version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}
	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	// Validate version (must be KiCad 6.0 or later)
	if ver < MinSupportedVersion {
		return fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion)
	}
	b.Version = ver
	b.Generator = "unknown"
	if gen := sexp.ChildString(b.root, "generator"); gen != "" {
		b.Generator = gen
	} else if host := sexp.ChildString(b.root, "host"); host != "" {
		b.Generator = host
	}
	return nil
}

// parseLayers extracts layer definitions
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func (b *Board) parseLayers(node *kicadsexp.List) error {
	for _, item := range sexp.GetListItems(node) {
		layerNode, ok := item.(*kicadsexp.List)
		if !ok {
			continue
		}
		number, err := sexp.GetInt(layerNode, 0)
		if err != nil {
			return fmt.Errorf("failed to parse layer number: %w", err)
		}
		name, err := sexp.GetString(layerNode, 1)
		if err != nil {
			return fmt.Errorf("failed to parse layer name: %w", err)
		}
		layerType, err := sexp.GetString(layerNode, 2)
		if err != nil {
			return fmt.Errorf("failed to parse layer type: %w", err)
		}
		userName, _ := sexp.GetString(layerNode, 3)
		b.layers.add(&Layer{Number: number, Name: name, Type: layerType, UserName: userName, node: layerNode})
	}
	return nil
}

// parseNet reads a (net N "name") declaration.
func (b *Board) parseNet(node *kicadsexp.List) error {
	number, err := sexp.GetInt(node, 1)
	if err != nil {
		return fmt.Errorf("failed to parse net number: %w", err)
	}
	name, _ := sexp.GetString(node, 2)
	b.nets.add(&Net{Number: number, Name: name, node: node})
	return nil
}

// parseNetClass reads a legacy in-board (net_class name "desc" ... (add_net "n")) block.
func (b *Board) parseNetClass(node *kicadsexp.List) {
	class, err := sexp.GetString(node, 1)
	if err != nil {
		return
	}
	b.classes.declare(class)
	for _, add := range sexp.FindAllNodes(node, "add_net") {
		if net, err := sexp.GetString(add, 1); err == nil {
			b.classes.Assign(net, class)
		}
	}
}
