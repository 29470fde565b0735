package simconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Summary"

var reportHeader = []string{
	"Slice", "Nets", "Differential", "Ports", "Length [mm]", "Width [mm]",
	"Impedance [Ohm]", "First net", "Second net",
}

// RunSummary is one row of the run report.
type RunSummary struct {
	Name         string
	Nets         []string
	Differential bool
	Ports        int
	Length       float64
	Width        float64
	Impedance    float64
	FirstInfo    string
	SecondInfo   string
}

func (r RunSummary) row() []any {
	return []any{
		r.Name,
		strings.Join(r.Nets, ", "),
		r.Differential,
		r.Ports,
		r.Length,
		r.Width,
		r.Impedance,
		r.FirstInfo,
		r.SecondInfo,
	}
}

// WriteReport writes the run summaries as a spreadsheet.
func WriteReport(path string, rows []RunSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return err
	}
	header := make([]any, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(reportHeader), 1)
	if err := f.SetCellStyle(reportSheet, "A1", last, bold); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := r.row()
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(reportSheet, "A", "B", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "H", "I", 60); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// ReadReport reads back a spreadsheet written by WriteReport.
func ReadReport(path string) ([]RunSummary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) < len(reportHeader) || rows[0][0] != reportHeader[0] {
		return nil, fmt.Errorf("%s: not a slice report", path)
	}

	var out []RunSummary
	for n, row := range rows[1:] {
		for len(row) < len(reportHeader) {
			row = append(row, "")
		}
		r := RunSummary{Name: row[0], FirstInfo: row[7], SecondInfo: row[8]}
		if row[1] != "" {
			r.Nets = strings.Split(row[1], ", ")
		}
		if err := r.parseNumbers(row); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, n+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (r *RunSummary) parseNumbers(row []string) error {
	var err error
	if r.Differential, err = strconv.ParseBool(row[2]); err != nil {
		return err
	}
	if r.Ports, err = strconv.Atoi(row[3]); err != nil {
		return err
	}
	if r.Length, err = strconv.ParseFloat(row[4], 64); err != nil {
		return err
	}
	if r.Width, err = strconv.ParseFloat(row[5], 64); err != nil {
		return err
	}
	r.Impedance, err = strconv.ParseFloat(row[6], 64)
	return err
}

// SummarizeSlice rebuilds the report row of a slice directory from its
// netinfo.json and simulation.json. Port placement notes are not stored and
// stay empty.
func SummarizeSlice(dir string) (RunSummary, error) {
	info, err := LoadNetInfo(filepath.Join(dir, NetInfoFile))
	if err != nil {
		return RunSummary{}, err
	}
	sim, err := LoadSimulation(filepath.Join(dir, SimulationFile))
	if err != nil {
		return RunSummary{}, err
	}
	r := RunSummary{Name: filepath.Base(dir), Ports: len(sim.Ports)}
	for _, n := range info.Nets {
		r.Nets = append(r.Nets, n.Name)
	}
	if len(info.Nets) > 0 {
		first := info.Nets[0]
		r.Differential = first.Diff
		r.Impedance = first.Impedance
		if r.Length, err = strconv.ParseFloat(first.Length, 64); err != nil {
			return r, fmt.Errorf("%s: length: %w", dir, err)
		}
		if r.Width, err = strconv.ParseFloat(first.Width, 64); err != nil {
			return r, fmt.Errorf("%s: width: %w", dir, err)
		}
	}
	return r, nil
}

// SliceDirs lists the directories below root that hold a simulation.json,
// in lexical order.
func SliceDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, SimulationFile)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
