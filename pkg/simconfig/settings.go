// Package simconfig reads and writes the JSON files around a slice run:
// per net settings, the simulation.json port configuration, netinfo.json
// and the settings generator input.
package simconfig

import (
	"fmt"
	"regexp"
	"strings"
)

// File and directory names of a slice run.
const (
	BoardExtension = ".kicad_pcb"
	OutputDir      = "slices"
	SimulationFile = "simulation.json"
	NetInfoFile    = "netinfo.json"
	DefaultInit    = "si-wrapper-init.json"
	DefaultCfgDir  = "si-wrapper-cfg"
)

// Settings configures the slice of one net or one differential pair.
type Settings struct {
	DesignatedNets   []string         `json:"designated_nets"`
	BoardOffset      BoardOffset      `json:"board_offset"`
	IncludedPads     []string         `json:"included_pads"`
	ExcludedPads     []string         `json:"excluded_pads"`
	HiddenPads       HiddenPads       `json:"hidden_pads"`
	NeighbouringNets NeighbouringNets `json:"neighbouring_nets"`

	// Optional extensions
	BridgePassives          bool   `json:"bridge_passives,omitempty"`
	SimulationPortFootprint string `json:"simulation_port_footprint,omitempty"`
}

// BoardOffset holds the margins around the designated net, in mm.
type BoardOffset struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// HiddenPads selects which pads get hidden behind ports.
type HiddenPads struct {
	DesignatedNet bool `json:"designated_net"`
	OtherNets     bool `json:"other_nets"`
}

// NeighbouringNets configures neighbor net detection.
type NeighbouringNets struct {
	InUse        bool     `json:"in_use"`
	Offset       float64  `json:"offset"`
	CommonPoints int      `json:"common_points"`
	Netlist      []string `json:"netlist"`
}

// DefaultSettings returns the settings the generator writes for nets.
func DefaultSettings(nets []string) *Settings {
	return &Settings{
		DesignatedNets: append([]string(nil), nets...),
		BoardOffset:    BoardOffset{Top: 1, Bottom: 1, Left: 1, Right: 1},
		IncludedPads:   []string{},
		ExcludedPads:   []string{},
		HiddenPads:     HiddenPads{DesignatedNet: true, OtherNets: true},
		NeighbouringNets: NeighbouringNets{
			InUse:        true,
			Offset:       0.01,
			CommonPoints: 100,
			Netlist:      []string{},
		},
	}
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	if len(s.DesignatedNets) == 0 || len(s.DesignatedNets) > 2 {
		return fmt.Errorf("designated_nets: expected 1 or 2 nets, got %d", len(s.DesignatedNets))
	}
	for _, n := range s.DesignatedNets {
		if n == "" {
			return fmt.Errorf("designated_nets: empty net name")
		}
	}
	o := s.BoardOffset
	if o.Top < 0 || o.Bottom < 0 || o.Left < 0 || o.Right < 0 {
		return fmt.Errorf("board_offset: margins must not be negative")
	}
	if s.NeighbouringNets.Offset < 0 {
		return fmt.Errorf("neighbouring_nets.offset must not be negative")
	}
	if s.NeighbouringNets.CommonPoints < 0 {
		return fmt.Errorf("neighbouring_nets.common_points must not be negative")
	}
	return nil
}

// Differential reports whether the settings name a pair of nets.
func (s *Settings) Differential() bool {
	return len(s.DesignatedNets) == 2
}

// LoadSettings reads and validates a settings file.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{}
	if err := readJSON(path, s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings file.
func (s *Settings) Save(path string) error {
	return writeJSON(path, s)
}

var diffSuffix = regexp.MustCompile(`((_P)|(_?\+))$`)

// FilesystemName turns the first designated net into a directory name.
// Pairs get their positive suffix replaced by _Diff.
func FilesystemName(nets []string) string {
	if len(nets) == 0 {
		return ""
	}
	name := strings.TrimPrefix(nets[0], "/")
	name = strings.NewReplacer(
		"/", "_",
		" ", "_",
		"(", "",
		")", "",
		"{", "",
		"}", "",
		"~", "neg",
	).Replace(name)
	if len(nets) == 2 {
		name = diffSuffix.ReplaceAllString(name, "_Diff")
	}
	return name
}

// SettingsFileName is the name the generator gives the settings of nets.
func SettingsFileName(nets []string) string {
	name := strings.TrimPrefix(nets[0], "/")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "_P", "_PN")
	name = strings.ReplaceAll(name, " ", "_")
	return name + ".json"
}
