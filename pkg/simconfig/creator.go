package simconfig

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// AllClasses selects every controlled impedance net class.
const AllClasses = "all"

// Init is the settings generator input.
type Init struct {
	Board    string   `json:"board"`
	Netclass string   `json:"netclass"`
	Nets     []string `json:"nets"`
}

// DefaultInitFile returns the input written when none exists.
func DefaultInitFile() *Init {
	return &Init{Board: ".", Netclass: AllClasses, Nets: []string{}}
}

// LoadOrCreateInit reads the generator input, writing the default one
// first when path does not exist.
func LoadOrCreateInit(path string) (*Init, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		in := DefaultInitFile()
		if err := writeJSON(path, in); err != nil {
			return nil, err
		}
		return in, nil
	}
	in := &Init{}
	if err := readJSON(path, in); err != nil {
		return nil, err
	}
	return in, nil
}

// ClassifiedNet is a board net with its net class.
type ClassifiedNet struct {
	Name  string
	Class string
}

// BoardNets lists the named nets of a board in net table order.
func BoardNets(b *pcb.Board) []ClassifiedNet {
	var nets []ClassifiedNet
	for _, n := range b.Nets().All() {
		if n.Name == "" {
			continue
		}
		nets = append(nets, ClassifiedNet{Name: n.Name, Class: b.NetClasses().ClassOf(n.Name)})
	}
	return nets
}

// Select returns the designated net groups the input asks for. Class based
// selections skip positive pair members, the negative one stands for the
// pair.
func (in *Init) Select(nets []ClassifiedNet) [][]string {
	var names []string
	switch {
	case in.Netclass == AllClasses:
		for _, n := range nets {
			if pcb.IsControlledImpedance(n.Class) && !positive(n.Name) {
				names = append(names, n.Name)
			}
		}
	case len(in.Netclass) > 1:
		for _, n := range nets {
			if n.Class == in.Netclass && !positive(n.Name) {
				names = append(names, n.Name)
			}
		}
	default:
		names = in.Nets
	}

	var groups [][]string
	for _, n := range names {
		if n == "" {
			continue
		}
		groups = append(groups, pairOf(n))
	}
	return groups
}

func positive(name string) bool {
	return strings.HasSuffix(name, "P") || strings.HasSuffix(name, "+")
}

// pairOf expands the negative member of a pair to both members.
func pairOf(name string) []string {
	base := name[:len(name)-1]
	switch name[len(name)-1] {
	case 'N':
		return []string{base + "P", base + "N"}
	case '-':
		return []string{base + "+", base + "-"}
	}
	return []string{name}
}

// WriteSettings writes default settings for every group into dir and
// returns the file paths.
func WriteSettings(dir string, groups [][]string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, nets := range groups {
		path := filepath.Join(dir, SettingsFileName(nets))
		if err := DefaultSettings(nets).Save(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FindBoard resolves a board path. A directory is searched for the first
// board file in it.
func FindBoard(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), BoardExtension) {
			return filepath.Join(path, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no %s file in %s: %w", BoardExtension, path, fs.ErrNotExist)
}
