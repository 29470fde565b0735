package simconfig

import (
	"slices"
)

// SimulationFormatVersion is written in the header of simulation.json.
const SimulationFormatVersion = "1.1"

// Simulation is the content of simulation.json.
type Simulation struct {
	FormatVersion     string             `json:"format_version"`
	Frequency         Frequency          `json:"frequency"`
	MaxSteps          float64            `json:"max_steps"`
	Via               Via                `json:"via"`
	Mesh              Mesh               `json:"mesh"`
	Margin            Margin             `json:"margin"`
	Ports             []Port             `json:"ports"`
	DifferentialPairs []DifferentialPair `json:"differential_pairs,omitempty"`
}

// Frequency is the simulated band in Hz.
type Frequency struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
}

// Via describes via modelling, thickness in um.
type Via struct {
	FillingEpsilon   float64 `json:"filling_epsilon"`
	PlatingThickness float64 `json:"plating_thickness"`
}

// Mesh holds mesh resolution parameters, in um.
type Mesh struct {
	XY          float64 `json:"xy"`
	InterLayers float64 `json:"inter_layers"`
	Margin      Margin  `json:"margin"`
}

// Margin is the simulation box margin, in um.
type Margin struct {
	XY float64 `json:"xy"`
	Z  float64 `json:"z"`
}

// Port is one simulation port. Width and length are in um.
type Port struct {
	Number    int     `json:"number"`
	Width     float64 `json:"width"`
	Length    float64 `json:"length"`
	Impedance float64 `json:"impedance"`
	Layer     int     `json:"layer"`
	Plane     int     `json:"plane"`
	Excite    bool    `json:"excite"`
}

// DifferentialPair names the ports of a pair, 0 based.
type DifferentialPair struct {
	StartP        int     `json:"start_p"`
	StopP         int     `json:"stop_p"`
	StartN        int     `json:"start_n"`
	StopN         int     `json:"stop_n"`
	Name          string  `json:"name"`
	DiffImpedance float64 `json:"diff_impedance"`
}

// NewSimulation returns a simulation with the default header and no ports.
func NewSimulation() *Simulation {
	return &Simulation{
		FormatVersion: SimulationFormatVersion,
		Frequency:     Frequency{Start: 2e8, Stop: 4e9},
		MaxSteps:      5e5,
		Via:           Via{FillingEpsilon: 1, PlatingThickness: 50},
		Mesh: Mesh{
			XY:          50,
			InterLayers: 6,
			Margin:      Margin{XY: 200, Z: 200},
		},
		Margin: Margin{XY: 500, Z: 500},
		Ports:  []Port{},
	}
}

// AddPort appends a port record.
func (s *Simulation) AddPort(p Port) {
	s.Ports = append(s.Ports, p)
}

// AddDifferentialPair appends a pair record.
func (s *Simulation) AddDifferentialPair(d DifferentialPair) {
	s.DifferentialPairs = append(s.DifferentialPairs, d)
}

// Port returns the record with the given number.
func (s *Simulation) Port(number int) (Port, bool) {
	for _, p := range s.Ports {
		if p.Number == number {
			return p, true
		}
	}
	return Port{}, false
}

// Renumber drops the ports whose number is not in kept and numbers the
// rest 1..n in their current order.
func (s *Simulation) Renumber(kept []int) {
	ports := s.Ports[:0]
	for _, p := range s.Ports {
		if slices.Contains(kept, p.Number) {
			ports = append(ports, p)
		}
	}
	for i := range ports {
		ports[i].Number = i + 1
	}
	s.Ports = ports
}

// LoadSimulation reads simulation.json.
func LoadSimulation(path string) (*Simulation, error) {
	s := &Simulation{}
	if err := readJSON(path, s); err != nil {
		return nil, err
	}
	if s.Ports == nil {
		s.Ports = []Port{}
	}
	return s, nil
}

// Save writes simulation.json.
func (s *Simulation) Save(path string) error {
	return writeJSON(path, s)
}
