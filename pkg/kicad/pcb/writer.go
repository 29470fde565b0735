package pcb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Save writes the board to path, creating parent directories as needed.
func (b *Board) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create board file: %w", err)
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write syncs every element into the document and pretty-prints it.
func (b *Board) Write(w io.Writer) error {
	b.sync()
	if err := kicadsexp.Write(w, b.root); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	return nil
}

// sync brings the document in line with the model: deleted elements are
// removed, edited ones rewritten and new ones appended.
func (b *Board) sync() {
	root := b.root

	if len(b.removed) > 0 {
		gone := make(map[*kicadsexp.List]bool, len(b.removed))
		for _, n := range b.removed {
			gone[n] = true
		}
		root.RemoveFunc(func(e kicadsexp.Sexp) bool {
			l, ok := e.(*kicadsexp.List)
			return ok && gone[l]
		})
		b.pruneGroups(gone)
		b.removed = nil
	}

	b.syncNets()
	if b.Setup.auxChanged {
		setup, ok := sexp.FindNode(root, "setup")
		if !ok {
			setup = kicadsexp.Node("setup")
			root.Append(setup)
		}
		sexp.SetChild(setup, "aux_axis_origin", kicadsexp.Float(b.Setup.AuxAxisOrigin.X), kicadsexp.Float(b.Setup.AuxAxisOrigin.Y))
	}

	present := make(map[*kicadsexp.List]bool, root.Len())
	for _, e := range root.Elements() {
		if l, ok := e.(*kicadsexp.List); ok {
			present[l] = true
		}
	}
	attach := func(n *kicadsexp.List) {
		if !present[n] {
			root.Append(n)
			present[n] = true
		}
	}

	for _, fp := range b.footprints.items {
		if fp != nil {
			b.syncFootprint(fp)
			attach(fp.node)
		}
	}
	for _, d := range b.drawings.items {
		if d != nil {
			b.syncDrawing(d)
			attach(d.node)
		}
	}
	for _, t := range b.tracks.items {
		if t != nil {
			b.syncTrack(t)
			attach(t.node)
		}
	}
	for _, z := range b.zones.items {
		if z != nil {
			b.syncZone(z)
		}
	}
}

// syncNets declares nets that were added after loading, right after the
// existing net table.
func (b *Board) syncNets() {
	last := -1
	for i, e := range b.root.Elements() {
		if sexp.IsNode(e, "net") {
			last = i
		}
	}
	if last < 0 {
		// No table to extend; place new declarations after setup
		for i, e := range b.root.Elements() {
			if sexp.IsNode(e, "setup") || sexp.IsNode(e, "layers") {
				last = i
			}
		}
	}
	if last < 0 {
		last = b.root.Len() - 1
	}
	for _, n := range b.nets.All() {
		if n.node != nil {
			continue
		}
		n.node = kicadsexp.Node("net", kicadsexp.Int(n.Number), kicadsexp.Quoted(n.Name))
		last++
		b.root.Insert(last, n.node)
	}
}

// pruneGroups drops members that refer to deleted elements, and groups
// left empty.
func (b *Board) pruneGroups(gone map[*kicadsexp.List]bool) {
	ids := make(map[string]bool)
	for n := range gone {
		for _, key := range []string{"uuid", "tstamp"} {
			if id := sexp.ChildString(n, key); id != "" {
				ids[id] = true
			}
		}
	}
	if len(ids) == 0 {
		return
	}
	b.root.RemoveFunc(func(e kicadsexp.Sexp) bool {
		if !sexp.IsNode(e, "group") {
			return false
		}
		members, ok := sexp.FindNode(e, "members")
		if !ok {
			return false
		}
		members.RemoveFunc(func(m kicadsexp.Sexp) bool {
			return m.IsLeaf() && ids[m.String()]
		})
		return members.Len() <= 1
	})
}
