package netslice

import (
	"github.com/OpenTraceLab/OpenTraceSI/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// NeighborOptions tunes FindNeighbors.
type NeighborOptions struct {
	Offset       float64  // half width of the band around a designated segment, mm
	CommonPoints int      // matches a net needs to be kept
	Protect      []string // nets that are always kept
}

// between reports whether v lies strictly between a and b, in either order.
func between(v, a, b float64) bool {
	return (a < v && v < b) || (b < v && v < a)
}

// runsAlong reports whether track t has an endpoint inside the band of the
// designated segment start-end and an endpoint within its span. Diagonal
// segments never match.
func runsAlong(t *pcb.Track, start, end geom.Point, offset float64) bool {
	switch start.Orientation(end) {
	case 0, 180:
		// Vertical segment: band in x, span in y
		inBand := between(t.End.X, start.X-offset, start.X+offset) || between(t.Start.X, start.X-offset, start.X+offset)
		inSpan := between(t.End.Y, start.Y, end.Y) || between(t.Start.Y, start.Y, end.Y)
		return inBand && inSpan
	case 90, -90:
		inBand := between(t.End.Y, start.Y-offset, start.Y+offset) || between(t.Start.Y, start.Y-offset, start.Y+offset)
		inSpan := between(t.End.X, start.X, end.X) || between(t.Start.X, start.X, end.X)
		return inBand && inSpan
	}
	return false
}

// FindNeighbors picks the nets that run alongside the designated segments
// starts[i]-ends[i] and deletes the tracks of every other net except GND.
// Matches are counted per run of consecutive tracks of one net, in board
// order; a net keeps the best run it had. The protected nets come first in
// the result, then the qualifying nets in the order they were seen.
func (s *Slice) FindNeighbors(starts, ends []geom.Point, opts NeighborOptions) []string {
	var tracks []pcb.TrackID
	for _, id := range s.board.Tracks() {
		if !s.designated(s.netName(s.board.Track(id).Net)) {
			tracks = append(tracks, id)
		}
	}
	segments := min(len(starts), len(ends))

	var order []string
	best := make(map[string]int)
	record := func(net string, n int) {
		prev, seen := best[net]
		if !seen {
			order = append(order, net)
		}
		best[net] = max(prev, n)
	}

	run := 0
	previous := ""
	for i, id := range tracks {
		t := s.board.Track(id)
		name := s.netName(t.Net)
		if i > 0 && name != previous {
			if run > 0 {
				record(previous, run)
			}
			run = 0
		}
		for n := 0; n < segments; n++ {
			if runsAlong(t, starts[n], ends[n], opts.Offset) {
				run++
			}
		}
		previous = name
	}
	if run > 0 {
		record(previous, run)
	}

	var keep []string
	for _, net := range opts.Protect {
		if !contains(keep, net) {
			keep = append(keep, net)
		}
	}
	for _, net := range order {
		if best[net] >= opts.CommonPoints && !contains(keep, net) {
			keep = append(keep, net)
		}
	}
	Logger().Info("neighbouring nets", "nets", keep)

	for _, id := range tracks {
		name := s.netName(s.board.Track(id).Net)
		if !contains(keep, name) && name != pcb.GroundNetName {
			s.board.DeleteTrack(id)
		}
	}
	return keep
}
