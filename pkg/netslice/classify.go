package netslice

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// NetSummary aggregates the electrical figures of a list of tracks.
type NetSummary struct {
	Length        float64 // routed length in mm, vias excluded
	Width         float64 // width of the last segment seen, in mm
	Starts        []geom.Point
	Ends          []geom.Point
	Impedance     float64 // single ended impedance
	DiffImpedance float64 // differential impedance, 0 for single ended nets
	Differential  bool
}

// CheckDesignatedNets fails unless some track of a designated net belongs
// to a controlled impedance class.
func (s *Slice) CheckDesignatedNets() error {
	Logger().Info("designated nets", "nets", s.nets)
	for _, id := range s.board.Tracks() {
		t := s.board.Track(id)
		if s.designated(s.netName(t.Net)) && s.impedanceNet(t.Net) {
			return nil
		}
	}
	return fmt.Errorf("%v: %w", s.nets, ErrNotControlledImpedance)
}

// DesignatedTracks returns the tracks of each designated net, one list per
// net, in board order.
func (s *Slice) DesignatedTracks() [][]pcb.TrackID {
	lists := make([][]pcb.TrackID, len(s.nets))
	for _, id := range s.board.Tracks() {
		name := s.netName(s.board.Track(id).Net)
		for i, n := range s.nets {
			if n == name {
				lists[i] = append(lists[i], id)
			}
		}
	}
	return lists
}

// OtherImpedanceTracks returns the controlled impedance tracks of every net
// that is not designated.
func (s *Slice) OtherImpedanceTracks() []pcb.TrackID {
	var ids []pcb.TrackID
	for _, id := range s.board.Tracks() {
		t := s.board.Track(id)
		class := s.board.NetClassName(t.Net)
		if s.designated(s.netName(t.Net)) || class == pcb.DefaultNetClass {
			continue
		}
		if pcb.IsControlledImpedance(class) {
			ids = append(ids, id)
		}
	}
	return ids
}

// NetTracks returns every track of the net with the given code.
func (s *Slice) NetTracks(code int) []pcb.TrackID {
	var ids []pcb.TrackID
	for _, id := range s.board.Tracks() {
		if s.board.Track(id).Net == code {
			ids = append(ids, id)
		}
	}
	return ids
}

// Summarize aggregates a track list. The width is the last one seen, not
// an average.
func (s *Slice) Summarize(ids []pcb.TrackID) NetSummary {
	var sum NetSummary
	for _, id := range ids {
		t := s.board.Track(id)
		if t == nil || t.IsVia() {
			continue
		}
		sum.Starts = append(sum.Starts, t.Start)
		sum.Ends = append(sum.Ends, t.End)
		sum.Length += t.Length()
		sum.Width = t.Width

		ohms, diff, ok := pcb.ClassImpedance(s.board.NetClassName(t.Net))
		if !ok {
			continue
		}
		if diff {
			sum.Impedance = 50
			sum.DiffImpedance = ohms
			sum.Differential = true
		} else {
			sum.Impedance = ohms
		}
	}
	if len(sum.Starts) == 0 {
		Logger().Warn("no tracks to summarize", "tracks", len(ids))
	}
	return sum
}
