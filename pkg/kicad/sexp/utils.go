package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// NodeName returns the first symbol of a list (the node type/name)
func NodeName(s kicadsexp.Sexp) (string, error) {
	l, ok := s.(*kicadsexp.List)
	if !ok || l.Len() == 0 {
		return "", fmt.Errorf("expected non-empty list")
	}
	sym, ok := l.Get(0).(kicadsexp.Symbol)
	if !ok {
		return "", fmt.Errorf("expected symbol as list head, got %T", l.Get(0))
	}
	return string(sym), nil
}

// IsNode reports whether s is a list whose head is key.
func IsNode(s kicadsexp.Sexp, key string) bool {
	name, err := NodeName(s)
	return err == nil && name == key
}

// FindNode searches for a child node with the given key (first symbol)
// Example: FindNode(sexp, "at") finds (at 100 50) in a list
func FindNode(s kicadsexp.Sexp, key string) (*kicadsexp.List, bool) {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return nil, false
	}
	for _, item := range l.Elements() {
		if IsNode(item, key) {
			return item.(*kicadsexp.List), true
		}
	}
	return nil, false
}

// FindAllNodes finds all child nodes with the given key
func FindAllNodes(s kicadsexp.Sexp, key string) []*kicadsexp.List {
	var results []*kicadsexp.List
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return results
	}
	for _, item := range l.Elements() {
		if IsNode(item, key) {
			results = append(results, item.(*kicadsexp.List))
		}
	}
	return results
}

// HasSymbol checks if a list contains a specific bare symbol, e.g. (segment locked ...)
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return false
	}
	for _, item := range l.Elements() {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	l, ok := s.(*kicadsexp.List)
	if !ok || l.Len() <= 1 {
		return nil
	}
	return l.Elements()[1:]
}

// Typed value extraction helpers

// GetString extracts an atom value (quoted or bare) at the given index.
// Index 0 is the key, 1 is first value, etc.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	l, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	if index < 0 || index >= l.Len() {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, l.Len())
	}
	switch v := l.Get(index).(type) {
	case kicadsexp.Symbol:
		return string(v), nil
	case kicadsexp.Quoted:
		return string(v), nil
	}
	return "", fmt.Errorf("expected atom at index %d, got %T", index, l.Get(index))
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// ChildString returns the first value of the (key value) child, or "" when absent.
func ChildString(s kicadsexp.Sexp, key string) string {
	node, ok := FindNode(s, key)
	if !ok {
		return ""
	}
	v, _ := GetString(node, 1)
	return v
}

// ChildFloat returns the first value of the (key value) child.
func ChildFloat(s kicadsexp.Sexp, key string) (float64, bool) {
	node, ok := FindNode(s, key)
	if !ok {
		return 0, false
	}
	v, err := GetFloat(node, 1)
	return v, err == nil
}

// Domain-specific extraction helpers

// GetPositionXY extracts X,Y coordinates from (keyword X Y)
// Used for (start X Y), (end X Y), (xy X Y), etc.
func GetPositionXY(s kicadsexp.Sexp) (Position, error) {
	x, err := GetFloat(s, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}

	return Position{X: x, Y: y}, nil
}

// GetPosition extracts a Position from an (at X Y [angle]) node
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	pos, err := GetPositionXY(s)
	if err != nil {
		return PositionAngle{}, err
	}
	result := PositionAngle{Position: pos}
	// Angle is optional
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}
	return result, nil
}

// FindPositionXY looks up a (key X Y) child and decodes it.
func FindPositionXY(s kicadsexp.Sexp, key string) (Position, error) {
	node, ok := FindNode(s, key)
	if !ok {
		return Position{}, fmt.Errorf("missing required '%s' position", key)
	}
	pos, err := GetPositionXY(node)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse %s position: %w", key, err)
	}
	return pos, nil
}

// GetLayers extracts layer names from (layer "F.Cu") or (layers "F.Cu" "B.Cu" "*.Mask")
func GetLayers(s kicadsexp.Sexp) []string {
	var layers []string
	for _, item := range GetListItems(s) {
		if !item.IsLeaf() {
			continue
		}
		if name := item.String(); name != "" {
			layers = append(layers, name)
		}
	}
	return layers
}

// GetPoints decodes a (pts (xy X Y) ...) node.
func GetPoints(s kicadsexp.Sexp) ([]Position, error) {
	var pts []Position
	for _, xy := range FindAllNodes(s, "xy") {
		p, err := GetPositionXY(xy)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// Editing helpers

// SetValues replaces everything after the key of node with values.
func SetValues(node *kicadsexp.List, values ...kicadsexp.Sexp) {
	node.Truncate(1)
	node.Append(values...)
}

// SetChild overwrites the values of the first (key ...) child of parent,
// appending a new child when none exists. The child list is returned.
func SetChild(parent *kicadsexp.List, key string, values ...kicadsexp.Sexp) *kicadsexp.List {
	if node, ok := FindNode(parent, key); ok {
		SetValues(node, values...)
		return node
	}
	node := kicadsexp.Node(key, values...)
	parent.Append(node)
	return node
}

// RemoveChildren deletes every (key ...) child of parent.
func RemoveChildren(parent *kicadsexp.List, key string) int {
	return parent.RemoveFunc(func(e kicadsexp.Sexp) bool {
		return IsNode(e, key)
	})
}

// XY builds a (key X Y) node.
func XY(key string, p Position) *kicadsexp.List {
	return kicadsexp.Node(key, kicadsexp.Float(p.X), kicadsexp.Float(p.Y))
}

// At builds an (at X Y [angle]) node. A zero angle is omitted like KiCad does.
func At(p Position, angle Angle) *kicadsexp.List {
	if angle == 0 {
		return XY("at", p)
	}
	return kicadsexp.Node("at", kicadsexp.Float(p.X), kicadsexp.Float(p.Y), kicadsexp.Float(float64(angle)))
}

// Points builds a (pts (xy X Y) ...) node.
func Points(pts []Position) *kicadsexp.List {
	node := kicadsexp.Node("pts")
	for _, p := range pts {
		node.Append(XY("xy", p))
	}
	return node
}
