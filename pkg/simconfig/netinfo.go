package simconfig

import "fmt"

// NetInfo is the content of netinfo.json.
type NetInfo struct {
	Nets []NetRecord `json:"nets"`
}

// NetRecord summarizes one designated net of a slice.
type NetRecord struct {
	Name      string  `json:"name"`
	Length    string  `json:"length"`
	Width     string  `json:"width"`
	Impedance float64 `json:"impedance"`
	Diff      bool    `json:"diff"`
	Charts    Charts  `json:"charts"`
}

// Charts points at the result images of a net.
type Charts struct {
	Impedance string `json:"impedance"`
	Smith     string `json:"smith"`
	SParam    string `json:"s-param"`
}

// NewNetRecord formats a net summary. Length and width are in mm.
func NewNetRecord(name string, length, width, impedance float64, diff bool) NetRecord {
	return NetRecord{
		Name:      name,
		Length:    fmt.Sprintf("%.3f", length),
		Width:     fmt.Sprintf("%.3f", width),
		Impedance: impedance,
		Diff:      diff,
		Charts: Charts{
			Impedance: "./results/Z_*",
			Smith:     "./results/*_smith.png",
			SParam:    "./results/S_*",
		},
	}
}

// LoadNetInfo reads netinfo.json.
func LoadNetInfo(path string) (*NetInfo, error) {
	n := &NetInfo{}
	if err := readJSON(path, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Save writes netinfo.json.
func (n *NetInfo) Save(path string) error {
	return writeJSON(path, n)
}
