package netslice

import (
	"regexp"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// passiveValue matches capacitors and zero ohm resistors, by value.
var passiveValue = regexp.MustCompile(`((C_\d*[munp])|(R_0R))_.*`)

// bridgeWidth is the width of tracks that short passives, in mm.
const bridgeWidth = 0.15

// BridgePassives shorts capacitors and zero ohm resistors with a track from
// pad 2 to pad 1, so the designated net stays continuous through them.
// Parts that are SMD and excluded from the BOM, and parts with a pad on
// GND, are left alone. It returns the number of bridges added.
func (s *Slice) BridgePassives() int {
	added := 0
	for _, fid := range s.board.Footprints() {
		fp := s.board.Footprint(fid)
		if !passiveValue.MatchString(fp.Value) {
			continue
		}
		if fp.HasAttribute("smd") && fp.HasAttribute("exclude_from_bom") {
			continue
		}
		var pad1, pad2 pcb.PadID = -1, -1
		for _, pid := range s.board.FootprintPads(fid) {
			switch s.board.Pad(pid).Number {
			case "1":
				pad1 = pid
			case "2":
				pad2 = pid
			}
		}
		if pad1 < 0 || pad2 < 0 {
			continue
		}
		p1, p2 := s.board.Pad(pad1), s.board.Pad(pad2)
		if s.netName(p1.Net) == pcb.GroundNetName || s.netName(p2.Net) == pcb.GroundNetName {
			continue
		}
		s.board.AddTrack(pcb.Track{
			Kind:  pcb.KindSegment,
			Start: s.board.PadPosition(pad2),
			End:   s.board.PadPosition(pad1),
			Width: bridgeWidth,
			Layer: s.board.PadLayer(pad1),
			Net:   p1.Net,
		})
		Logger().Debug("bridged passive", "reference", fp.Reference, "value", fp.Value)
		added++
	}
	return added
}
