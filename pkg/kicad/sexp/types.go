// Package sexp provides shared S-expression navigation and editing helpers
// for KiCad files, and the small value types board elements are decoded into.
package sexp

import "github.com/OpenTraceLab/OpenTraceSI/pkg/geom"

// Position is a board coordinate in mm. KiCad 6+ stores millimeters
// directly, no unit conversion takes place.
type Position = geom.Point

// Angle is a rotation in degrees, counterclockwise as KiCad shows it.
type Angle float64

// PositionAngle is an (at x y [angle]) node.
type PositionAngle struct {
	Position
	Angle Angle
}

// Size is a (size w h) node, in mm.
type Size struct {
	Width  float64
	Height float64
}

// BoundingBox is an axis aligned box. The zero value from NewBoundingBox is
// empty and absorbs the first point expanded into it.
type BoundingBox struct {
	Min Position
	Max Position
}

// NewBoundingBox returns an empty box.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: 1e9, Y: 1e9},
		Max: Position{X: -1e9, Y: -1e9},
	}
}

// Empty reports whether nothing was expanded into the box.
func (bb BoundingBox) Empty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Intersects reports whether the boxes overlap or touch.
func (bb BoundingBox) Intersects(o BoundingBox) bool {
	return bb.Min.X <= o.Max.X && o.Min.X <= bb.Max.X &&
		bb.Min.Y <= o.Max.Y && o.Min.Y <= bb.Max.Y
}

// Contains reports whether p lies inside the box or on its edge.
func (bb BoundingBox) Contains(p Position) bool {
	return bb.Min.X <= p.X && p.X <= bb.Max.X && bb.Min.Y <= p.Y && p.Y <= bb.Max.Y
}

// Expand grows the box to include p.
func (bb *BoundingBox) Expand(p Position) {
	bb.Min = Position{X: min(bb.Min.X, p.X), Y: min(bb.Min.Y, p.Y)}
	bb.Max = Position{X: max(bb.Max.X, p.X), Y: max(bb.Max.Y, p.Y)}
}

// ExpandBox grows the box to include o. Empty boxes are ignored.
func (bb *BoundingBox) ExpandBox(o BoundingBox) {
	if o.Empty() {
		return
	}
	bb.Expand(o.Min)
	bb.Expand(o.Max)
}

func (bb BoundingBox) Width() float64  { return bb.Max.X - bb.Min.X }
func (bb BoundingBox) Height() float64 { return bb.Max.Y - bb.Min.Y }
