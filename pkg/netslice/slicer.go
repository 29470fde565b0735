package netslice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
)

// Record constants, in um.
const (
	terminatedPortLength = 250
	umPerMM              = 1000
)

// Slicer runs the whole slice flow for one settings file.
type Slicer struct {
	BoardPath     string
	Settings      *simconfig.Settings
	OutDir        string          // parent of the slice directory, simconfig.OutputDir when empty
	PortFootprint *kicadsexp.List // overrides Settings.SimulationPortFootprint
}

// Result describes a finished slice.
type Result struct {
	Name         string
	Nets         []string
	Dir          string
	BoardPath    string
	Differential bool

	Terminated []int
	Other      []int
	First      []int
	Second     []int

	FirstNet   NetSummary
	SecondNet  NetSummary
	FirstInfo  string
	SecondInfo string

	Simulation *simconfig.Simulation
	NetInfo    *simconfig.NetInfo
}

// Ports returns the number of simulation ports on the slice.
func (r *Result) Ports() int {
	return len(r.Terminated) + len(r.Other) + len(r.First) + len(r.Second)
}

// Summary returns the report row of the slice.
func (r *Result) Summary() simconfig.RunSummary {
	return simconfig.RunSummary{
		Name:         r.Name,
		Nets:         r.Nets,
		Differential: r.Differential,
		Ports:        r.Ports(),
		Length:       r.FirstNet.Length,
		Width:        r.FirstNet.Width,
		Impedance:    r.FirstNet.Impedance,
		FirstInfo:    r.FirstInfo,
		SecondInfo:   r.SecondInfo,
	}
}

func (sl *Slicer) portFootprint() (*kicadsexp.List, error) {
	if sl.PortFootprint != nil {
		return sl.PortFootprint, nil
	}
	if path := sl.Settings.SimulationPortFootprint; path != "" {
		return pcb.LoadFootprintFile(path)
	}
	return DefaultPortFootprint(), nil
}

// Run slices the board. The source board file is read, never written.
func (sl *Slicer) Run(ctx context.Context) (*Result, error) {
	if sl.Settings == nil {
		return nil, errors.New("no settings")
	}
	if err := sl.Settings.Validate(); err != nil {
		return nil, err
	}
	board, err := pcb.LoadBoard(sl.BoardPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", sl.BoardPath, ErrNoBoard)
		}
		return nil, err
	}
	tmpl, err := sl.portFootprint()
	if err != nil {
		return nil, fmt.Errorf("failed to load port footprint: %w", err)
	}

	cfg := sl.Settings
	nets := cfg.DesignatedNets
	s, err := New(board, nets, WithPortFootprint(tmpl))
	if err != nil {
		return nil, err
	}
	if err := s.CheckDesignatedNets(); err != nil {
		return nil, err
	}

	res := &Result{
		Name:       simconfig.FilesystemName(nets),
		Nets:       nets,
		Simulation: simconfig.NewSimulation(),
		NetInfo:    &simconfig.NetInfo{Nets: []simconfig.NetRecord{}},
	}
	outDir := sl.OutDir
	if outDir == "" {
		outDir = simconfig.OutputDir
	}
	res.Dir = filepath.Join(outDir, res.Name)
	res.BoardPath = filepath.Join(res.Dir, res.Name+simconfig.BoardExtension)

	// Designated nets
	designated := s.DesignatedTracks()
	res.FirstNet = s.Summarize(designated[0])
	res.Differential = len(designated) == 2 && len(designated[1]) > 0
	var all []pcb.TrackID
	all = append(all, designated[0]...)
	if res.Differential {
		res.SecondNet = s.Summarize(designated[1])
		all = append(all, designated[1]...)
		Logger().Info("differential tracks recognized", "nets", nets)
	} else {
		Logger().Info("single track recognized", "net", nets[0])
	}
	whole := s.Summarize(all)

	filter := PadFilter{Include: cfg.IncludedPads, Exclude: cfg.ExcludedPads}
	pads := s.DesignatedPads()
	first := s.PortCandidates(pads, filter, nets[:1])
	var second []PortCandidate
	if res.Differential {
		second = s.PortCandidates(pads, filter, nets[1:2])
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if nn := cfg.NeighbouringNets; nn.InUse {
		s.FindNeighbors(whole.Starts, whole.Ends, NeighborOptions{
			Offset:       nn.Offset,
			CommonPoints: nn.CommonPoints,
			Protect:      nn.Netlist,
		})
	}
	if cfg.BridgePassives {
		n := s.BridgePassives()
		Logger().Info("bridged passives", "count", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := cfg.BoardOffset
	ported, bound, err := s.CreateEdgeCuts(whole.Starts, whole.Ends, Margins{
		Right:  o.Right,
		Left:   o.Left,
		Bottom: o.Bottom,
		Top:    o.Top,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	first = s.Surviving(first, bound)
	second = s.Surviving(second, bound)

	res.NetInfo.Nets = append(res.NetInfo.Nets, simconfig.NewNetRecord(nets[0], res.FirstNet.Length, res.FirstNet.Width, res.FirstNet.Impedance, res.Differential))
	if res.Differential {
		res.NetInfo.Nets = append(res.NetInfo.Nets, simconfig.NewNetRecord(nets[1], res.SecondNet.Length, res.SecondNet.Width, res.SecondNet.Impedance, res.Differential))
	}

	for i, id := range ported {
		t := board.Track(id)
		layer := board.CopperIndex(t.Layer)
		plane := layer - 1
		if layer < board.CopperLayerCount()/2 {
			plane = layer + 1
		}
		net := s.Summarize(s.NetTracks(t.Net))
		n := i + 1
		res.Terminated = append(res.Terminated, n)
		res.Simulation.AddPort(simconfig.Port{
			Number:    n,
			Width:     round2(net.Width * umPerMM),
			Length:    terminatedPortLength,
			Impedance: net.Impedance,
			Layer:     layer,
			Plane:     plane,
		})
		Logger().Debug("terminated port record", "port", n, "net", s.netName(t.Net), "layer", layer, "impedance", net.Impedance)
	}

	// Other controlled impedance nets still on the slice
	var other []PortCandidate
	var otherSum NetSummary
	if tracks := s.OtherImpedanceTracks(); len(tracks) > 0 {
		otherSum = s.Summarize(tracks)
		var names []string
		for _, id := range tracks {
			if name := s.netName(board.Track(id).Net); !contains(names, name) {
				names = append(names, name)
			}
		}
		other = s.Surviving(s.PortCandidates(s.OtherPads(), filter, names), bound)
		if res.Other, _, err = s.PlacePorts(other); err != nil {
			return nil, err
		}
	}
	if res.First, _, err = s.PlacePorts(first); err != nil {
		return nil, err
	}
	if res.Differential {
		if res.Second, _, err = s.PlacePorts(second); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := board.CopperLayerCount()
	for _, c := range other {
		res.Simulation.AddPort(padPort(c, otherSum.Impedance, false, count))
	}
	for i, c := range first {
		res.Simulation.AddPort(padPort(c, res.FirstNet.Impedance, i == 0, count))
	}
	if res.Differential {
		for i, c := range second {
			res.Simulation.AddPort(padPort(c, res.SecondNet.Impedance, i == 0, count))
		}
		idx := PairIndices(res.First, res.Second)
		res.Simulation.AddDifferentialPair(simconfig.DifferentialPair{
			StartP:        idx[0],
			StopP:         idx[1],
			StartN:        idx[2],
			StopN:         idx[3],
			Name:          res.Name,
			DiffImpedance: res.FirstNet.DiffImpedance,
		})
	}

	board.RenameInnerLayers()
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return nil, err
	}
	if err := board.Save(res.BoardPath); err != nil {
		return nil, fmt.Errorf("failed to save slice: %w", err)
	}
	if err := res.Simulation.Save(filepath.Join(res.Dir, simconfig.SimulationFile)); err != nil {
		return nil, err
	}
	if err := res.NetInfo.Save(filepath.Join(res.Dir, simconfig.NetInfoFile)); err != nil {
		return nil, err
	}

	res.FirstInfo = PlacementInfo(len(res.First), "first")
	res.SecondInfo = " - "
	if res.Differential {
		res.SecondInfo = PlacementInfo(len(res.Second), "second")
	}
	logPlacement(res.FirstInfo)
	logPlacement(res.SecondInfo)
	Logger().Info("slice saved", "nets", nets, "path", res.BoardPath, "ports", res.Ports())
	return res, nil
}

// padPort builds the record of a port placed on a pad. Ports on B.Cu pads
// reference the last copper layer.
func padPort(c PortCandidate, impedance float64, excite bool, copperLayers int) simconfig.Port {
	layer := 0
	if c.Flipped {
		layer = copperLayers - 1
	}
	plane := layer - 1
	if layer == 0 {
		plane = 1
	}
	return simconfig.Port{
		Number:    c.Index,
		Width:     round2(c.Size.Width * umPerMM),
		Length:    round2(c.Size.Height * umPerMM),
		Impedance: impedance,
		Layer:     layer,
		Plane:     plane,
		Excite:    excite,
	}
}

// PairIndices returns the 0 based port indices of a differential pair as
// start and stop of the positive net, then of the negative net. Unless each
// net has exactly two ports, all four are 0.
func PairIndices(positive, negative []int) [4]int {
	if len(positive) != 2 || len(negative) != 2 {
		Logger().Warn("differential net slice needs two simulation ports per net, edit the slice and simulation.json",
			"positive", len(positive), "negative", len(negative))
		return [4]int{}
	}
	return [4]int{positive[0] - 1, positive[1] - 1, negative[0] - 1, negative[1] - 1}
}

// PlacementInfo describes whether a net got the two ports it needs.
func PlacementInfo(ports int, which string) string {
	switch {
	case ports > 2:
		return fmt.Sprintf("Too many ( %d ) Simulation Ports on %s net. Check it and fix if needed.", ports, which)
	case ports < 2:
		return fmt.Sprintf("Too few ( %d ) Simulation Ports on %s net. Check it and fix.", ports, which)
	}
	return "OK."
}

func logPlacement(info string) {
	if info == "OK." || info == " - " {
		Logger().Info("port placement", "result", info)
		return
	}
	Logger().Warn("port placement", "result", info)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
