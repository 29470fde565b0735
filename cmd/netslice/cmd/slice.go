package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/netslice"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
	"github.com/spf13/cobra"
)

var (
	sliceSettings string
	sliceList     bool
	sliceBoard    string
	sliceOut      string
	sliceReport   bool
)

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Cut simulation slices",
	Long: `Run the slicer for a settings file, or for every settings file found
below a directory. Each run reloads the source board, which is never
modified, and writes <out>/<name>/<name>.kicad_pcb with simulation.json
and netinfo.json next to it.

Examples:
  netslice slice                               # All files in si-wrapper-cfg
  netslice slice -f si-wrapper-cfg/USB_PN.json # One differential pair
  netslice slice --list                        # Show what would be sliced
  netslice slice --report                      # Also write slices/summary.xlsx`,
	Args: cobra.NoArgs,
	RunE: runSlice,
}

func init() {
	rootCmd.AddCommand(sliceCmd)
	sliceCmd.Flags().StringVarP(&sliceSettings, "file", "f", simconfig.DefaultCfgDir, "settings file or directory of settings files")
	sliceCmd.Flags().BoolVar(&sliceList, "list", false, "list settings files and their nets, do not slice")
	sliceCmd.Flags().StringVar(&sliceBoard, "board", "", "board file or directory (default: board of "+simconfig.DefaultInit+", else .)")
	sliceCmd.Flags().StringVar(&sliceOut, "out", simconfig.OutputDir, "output directory")
	sliceCmd.Flags().BoolVar(&sliceReport, "report", false, "write the run summary spreadsheet")
}

// settingsFiles expands a settings path to the JSON files it names.
func settingsFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func runSlice(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	files, err := settingsFiles(sliceSettings)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no settings files in %s", sliceSettings)
	}

	var all []*simconfig.Settings
	for _, f := range files {
		s, err := simconfig.LoadSettings(f)
		if err != nil {
			return err
		}
		all = append(all, s)
	}
	if sliceList {
		for i, s := range all {
			fmt.Fprintf(out, "%-40s %s\n", files[i], strings.Join(s.DesignatedNets, ", "))
		}
		return nil
	}

	board, err := resolveBoard(sliceBoard, simconfig.DefaultInit)
	if err != nil {
		return fmt.Errorf("failed to find board: %w", err)
	}
	fmt.Fprintf(out, "Board: %s\n", board)

	var rows []simconfig.RunSummary
	for i, s := range all {
		sl := &netslice.Slicer{BoardPath: board, Settings: s, OutDir: sliceOut}
		res, err := sl.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", files[i], err)
		}
		fmt.Fprintf(out, "%s: %d ports -> %s\n", res.Name, res.Ports(), res.BoardPath)
		fmt.Fprintf(out, "  first net:  %s\n", res.FirstInfo)
		fmt.Fprintf(out, "  second net: %s\n", res.SecondInfo)
		rows = append(rows, res.Summary())
	}

	if sliceReport {
		path := filepath.Join(sliceOut, reportName)
		if err := simconfig.WriteReport(path, rows); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(out, "Report: %s\n", path)
	}
	return nil
}
