package pcb

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// ParseFootprint reads a .kicad_mod library footprint. The result can be
// handed to PlaceFootprint any number of times.
func ParseFootprint(r io.Reader) (*kicadsexp.List, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse footprint: %w", err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty footprint file")
	}
	node, ok := sexps[0].(*kicadsexp.List)
	if !ok || !(sexp.IsNode(node, "footprint") || sexp.IsNode(node, "module")) {
		name, _ := sexp.NodeName(sexps[0])
		return nil, fmt.Errorf("not a KiCad footprint: expected 'footprint', got '%s'", name)
	}
	return node, nil
}

// LoadFootprintFile reads a .kicad_mod file from disk.
func LoadFootprintFile(path string) (*kicadsexp.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open footprint: %w", err)
	}
	defer f.Close()
	return ParseFootprint(f)
}
