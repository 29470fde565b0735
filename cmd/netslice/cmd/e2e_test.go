package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
)

const testdata = "../../../testdata/boards"

// copyFixture copies the fixture board and its project file into dir.
func copyFixture(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"fixture.kicad_pcb", "fixture.kicad_pro"} {
		data, err := os.ReadFile(filepath.Join(testdata, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// resetFlags restores the flag defaults between command runs.
func resetFlags() {
	debug = false
	sliceSettings = simconfig.DefaultCfgDir
	sliceList = false
	sliceBoard = ""
	sliceOut = simconfig.OutputDir
	sliceReport = false
	settingsInit = simconfig.DefaultInit
	settingsOut = simconfig.DefaultCfgDir
	settingsBoard = ""
	renumerateDir = "."
	reportDir = simconfig.OutputDir
	reportOut = ""
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// TestWorkflowE2E runs the commands in the order a user would
func TestWorkflowE2E(t *testing.T) {
	dir := t.TempDir()
	hw := filepath.Join(dir, "hw")
	copyFixture(t, hw)
	cfg := filepath.Join(dir, "cfg")
	slices := filepath.Join(dir, "slices")

	steps := []struct {
		name        string
		args        []string
		wantContain []string
	}{
		{
			name: "nets",
			args: []string{"nets", hw},
			wantContain: []string{
				"50Ohm-SE (50 Ohm single ended)",
				"90Ohm-USB (90 Ohm differential)",
				"  CLK",
				"  /USB_P",
				"Default",
			},
		},
		{
			name:        "settings",
			args:        []string{"settings", "-i", filepath.Join(dir, "init.json"), "-o", cfg, "--board", hw},
			wantContain: []string{"CLK.json", "USB_PN.json", "Wrote 2 settings files"},
		},
		{
			name:        "list",
			args:        []string{"slice", "--list", "-f", cfg},
			wantContain: []string{"CLK.json", "/USB_P, /USB_N"},
		},
		{
			name: "slice",
			args: []string{"slice", "-f", filepath.Join(cfg, "CLK.json"), "--board", hw, "--out", slices, "--report"},
			wantContain: []string{
				"CLK: 0 ports",
				"Too few ( 0 ) Simulation Ports on first net",
				"second net:  - ",
				"Report:",
			},
		},
		{
			name:        "report",
			args:        []string{"report", "--dir", slices},
			wantContain: []string{"(1 slices)"},
		},
		{
			name:        "renumerate",
			args:        []string{"renumerate", "--dir", filepath.Join(slices, "CLK")},
			wantContain: []string{"CLK.kicad_pcb: 0 ports, previously []"},
		},
	}
	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			output, err := run(t, st.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range st.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}

	for _, f := range []string{
		filepath.Join(dir, "init.json"),
		filepath.Join(slices, "CLK", "CLK.kicad_pcb"),
		filepath.Join(slices, "CLK", simconfig.SimulationFile),
		filepath.Join(slices, "CLK", simconfig.NetInfoFile),
		filepath.Join(slices, reportName),
	} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s", f)
		}
	}
	rows, err := simconfig.ReadReport(filepath.Join(slices, reportName))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "CLK" || rows[0].Length != 10 {
		t.Errorf("report rows = %+v", rows)
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"missing settings", []string{"slice", "-f", filepath.Join(dir, "none")}},
		{"empty settings dir", []string{"slice", "-f", dir}},
		{"no board", []string{"nets", dir}},
		{"renumerate without slice", []string{"renumerate", "--dir", dir}},
		{"extra argument", []string{"slice", "CLK"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if output, err := run(t, tt.args...); err == nil {
				t.Errorf("Expected error but got none\nOutput: %s", output)
			}
		})
	}
}
