package netslice

import (
	"sort"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
)

// RenumberPorts closes the gaps in the SP<n> references of a hand edited
// slice. Ports keep their relative order and become SP1..SPk. It returns
// the old numbers in the new order.
func RenumberPorts(board *pcb.Board) []int {
	type port struct {
		id  pcb.FootprintID
		num int
	}
	var ports []port
	for _, fid := range board.Footprints() {
		m := PortReference.FindStringSubmatch(board.Footprint(fid).Reference)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ports = append(ports, port{id: fid, num: n})
	}
	sort.SliceStable(ports, func(i, j int) bool { return ports[i].num < ports[j].num })

	old := make([]int, len(ports))
	for i, p := range ports {
		old[i] = p.num
		board.Footprint(p.id).Reference = "SP" + strconv.Itoa(i+1)
	}
	Logger().Info("renumbered simulation ports", "ports", len(ports))
	return old
}
