package pcb

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// DefaultNetClass is the class of nets nothing assigns.
const DefaultNetClass = "Default"

// Controlled impedance classes are named "<ohms>Ohm-<qualifier>", for
// example 50Ohm-SE or 90Ohm-USB.
var (
	impedanceClass = regexp.MustCompile(`^\d+Ohm-(\w|\d|-)*`)
	leadingOhms    = regexp.MustCompile(`^\d+`)
)

// IsControlledImpedance reports whether a net class encodes an impedance.
func IsControlledImpedance(class string) bool {
	return impedanceClass.MatchString(class)
}

// ClassImpedance parses the impedance figure of a class name. Classes whose
// lower-cased name lacks "se" are differential pairs.
func ClassImpedance(class string) (ohms float64, differential bool, ok bool) {
	m := leadingOhms.FindString(class)
	if m == "" {
		return 0, false, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false, false
	}
	return v, !strings.Contains(strings.ToLower(class), "se"), true
}

// NetClasses resolves net names to net class names. Explicit assignments
// win over wildcard patterns; anything else is in the Default class.
type NetClasses struct {
	names    []string
	assigned map[string]string
	patterns []netClassPattern
}

type netClassPattern struct {
	re    *regexp.Regexp
	class string
}

// NewNetClasses returns an empty assignment table.
func NewNetClasses() *NetClasses {
	return &NetClasses{assigned: make(map[string]string)}
}

// Names returns the known class names in declaration order.
func (nc *NetClasses) Names() []string {
	return nc.names
}

func (nc *NetClasses) declare(class string) {
	for _, n := range nc.names {
		if n == class {
			return
		}
	}
	nc.names = append(nc.names, class)
}

// Assign puts a net in a class.
func (nc *NetClasses) Assign(net, class string) {
	nc.declare(class)
	nc.assigned[net] = class
}

// AddPattern assigns every net matching a KiCad wildcard pattern (* and ?)
// to a class.
func (nc *NetClasses) AddPattern(pattern, class string) error {
	expr := regexp.QuoteMeta(pattern)
	expr = strings.ReplaceAll(expr, `\*`, `.*`)
	expr = strings.ReplaceAll(expr, `\?`, `.`)
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return fmt.Errorf("invalid net class pattern %q: %w", pattern, err)
	}
	nc.declare(class)
	nc.patterns = append(nc.patterns, netClassPattern{re: re, class: class})
	return nil
}

// ClassOf returns the class of a net.
func (nc *NetClasses) ClassOf(net string) string {
	if class, ok := nc.assigned[net]; ok {
		return class
	}
	for _, p := range nc.patterns {
		if p.re.MatchString(net) {
			return p.class
		}
	}
	return DefaultNetClass
}

// NetsOf returns the explicitly assigned nets of a class.
func (nc *NetClasses) NetsOf(class string) []string {
	var nets []string
	for net, c := range nc.assigned {
		if c == class {
			nets = append(nets, net)
		}
	}
	return nets
}

// projectFile is the subset of a .kicad_pro file the netclass loader needs.
type projectFile struct {
	NetSettings struct {
		Classes []struct {
			Name string   `json:"name"`
			Nets []string `json:"nets"`
		} `json:"classes"`
		NetclassAssignments map[string]json.RawMessage `json:"netclass_assignments"`
		NetclassPatterns    []struct {
			Netclass string `json:"netclass"`
			Pattern  string `json:"pattern"`
		} `json:"netclass_patterns"`
	} `json:"net_settings"`
}

// LoadProjectNetClasses merges the net_settings of a .kicad_pro file into nc.
func LoadProjectNetClasses(path string, nc *NetClasses) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read project: %w", err)
	}
	var pro projectFile
	if err := json.Unmarshal(data, &pro); err != nil {
		return fmt.Errorf("failed to decode project %s: %w", path, err)
	}

	for _, c := range pro.NetSettings.Classes {
		nc.declare(c.Name)
		for _, net := range c.Nets {
			nc.Assign(net, c.Name)
		}
	}
	for net, raw := range pro.NetSettings.NetclassAssignments {
		// A single class name, or a list of them in newer projects
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			nc.Assign(net, one)
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
			nc.Assign(net, many[0])
		}
	}
	for _, p := range pro.NetSettings.NetclassPatterns {
		if err := nc.AddPattern(p.Pattern, p.Netclass); err != nil {
			return err
		}
	}
	return nil
}
