package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
	"github.com/spf13/cobra"
)

const reportName = "summary.xlsx"

var (
	reportDir string
	reportOut string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the slice summary spreadsheet",
	Long: `Collect the netinfo.json and simulation.json of every slice below the
output directory into one spreadsheet.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportDir, "dir", simconfig.OutputDir, "directory holding the slices")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "spreadsheet path (default <dir>/"+reportName+")")
}

func runReport(cmd *cobra.Command, args []string) error {
	dirs, err := simconfig.SliceDirs(reportDir)
	if err != nil {
		return err
	}
	var rows []simconfig.RunSummary
	for _, d := range dirs {
		r, err := simconfig.SummarizeSlice(d)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	path := reportOut
	if path == "" {
		path = filepath.Join(reportDir, reportName)
	}
	if err := simconfig.WriteReport(path, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report: %s (%d slices)\n", path, len(rows))
	return nil
}
