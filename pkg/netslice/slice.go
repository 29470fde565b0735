// Package netslice cuts a self-contained slice of a KiCad board around one
// designated net or a designated differential pair, ready for a field
// solver. It computes the slice boundary, clips the copper crossing it,
// terminates clipped tracks with simulation ports or ground vias, places
// ports on the pads of the designated nets and keeps the neighboring nets
// that couple to them.
package netslice

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
)

// Fatal preconditions of a slice run.
var (
	ErrNotControlledImpedance = errors.New("net is not in a controlled impedance class")
	ErrNoBoard                = errors.New("no board file found")
)

// PortReference matches the reference of simulation port footprints.
var PortReference = regexp.MustCompile(`SP(\d+)`)

//go:embed footprint/Simulation_Port.kicad_mod
var simulationPortMod []byte

// DefaultPortFootprint returns the bundled Simulation_Port footprint.
func DefaultPortFootprint() *kicadsexp.List {
	fp, err := pcb.ParseFootprint(bytes.NewReader(simulationPortMod))
	if err != nil {
		panic(fmt.Sprintf("netslice: bundled port footprint: %v", err))
	}
	return fp
}

// PortCounter hands out simulation port numbers. Every run starts its own
// counter at 1.
type PortCounter struct {
	next int
}

// NewPortCounter returns a counter whose first number is 1.
func NewPortCounter() *PortCounter {
	return &PortCounter{next: 1}
}

// Next returns the next port number and advances the counter.
func (c *PortCounter) Next() int {
	n := c.next
	c.next++
	return n
}

// peek returns the number Next would return.
func (c *PortCounter) peek() int {
	return c.next
}

// Slice is the state of one slice run over a board.
type Slice struct {
	board   *pcb.Board
	nets    []string
	counter *PortCounter
	port    *kicadsexp.List
	ground  int
}

// Option customizes a Slice.
type Option func(*Slice)

// WithPortFootprint replaces the footprint placed for simulation ports.
func WithPortFootprint(fp *kicadsexp.List) Option {
	return func(s *Slice) {
		if fp != nil {
			s.port = fp
		}
	}
}

// withCounter shares a port counter. Use it when ports of one run are
// placed through more than one Slice.
func withCounter(c *PortCounter) Option {
	return func(s *Slice) {
		if c != nil {
			s.counter = c
		}
	}
}

// New prepares a slice of board around one or two designated nets. The
// board is mutated in place by every phase.
func New(board *pcb.Board, nets []string, opts ...Option) (*Slice, error) {
	if board == nil {
		return nil, ErrNoBoard
	}
	if len(nets) == 0 || len(nets) > 2 {
		return nil, fmt.Errorf("expected one net or a differential pair, got %d nets", len(nets))
	}
	s := &Slice{
		board:   board,
		nets:    append([]string(nil), nets...),
		counter: NewPortCounter(),
		ground:  board.GroundNet().Number,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.port == nil {
		s.port = DefaultPortFootprint()
	}
	return s, nil
}

// Board returns the board being sliced.
func (s *Slice) Board() *pcb.Board {
	return s.board
}

// Nets returns the designated net names.
func (s *Slice) Nets() []string {
	return s.nets
}

// Counter returns the port counter of the run.
func (s *Slice) Counter() *PortCounter {
	return s.counter
}

func (s *Slice) designated(netName string) bool {
	return contains(s.nets, netName)
}

func (s *Slice) netName(code int) string {
	return s.board.NetName(code)
}

func (s *Slice) impedanceNet(code int) bool {
	return pcb.IsControlledImpedance(s.board.NetClassName(code))
}

// placePort drops a simulation port footprint and numbers it.
func (s *Slice) placePort(pos pcb.Position, angle float64) (pcb.FootprintID, int, error) {
	n := s.counter.Next()
	id, err := s.board.PlaceFootprint(s.port, pos, pcb.Angle(angle), "SP"+strconv.Itoa(n))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to place SP%d: %w", n, err)
	}
	return id, n, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
