package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
	"github.com/spf13/cobra"
)

var (
	settingsInit  string
	settingsOut   string
	settingsBoard string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Generate default settings files",
	Long: `Write one default settings file per net or pair selected by the
generator input. The input names the board, a net class ("all" selects
every controlled impedance class) or an explicit net list. A missing
input file is created with the defaults first.

Pairs are written once, under the name of their positive member with _P
replaced by _PN.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVarP(&settingsInit, "init", "i", simconfig.DefaultInit, "generator input file")
	settingsCmd.Flags().StringVarP(&settingsOut, "out", "o", simconfig.DefaultCfgDir, "settings output directory")
	settingsCmd.Flags().StringVar(&settingsBoard, "board", "", "board file or directory (overrides the input)")
}

func runSettings(cmd *cobra.Command, args []string) error {
	in, err := simconfig.LoadOrCreateInit(settingsInit)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", settingsInit, err)
	}
	path := settingsBoard
	if path == "" {
		path = in.Board
	}
	board, file, err := loadBoard(path, settingsInit)
	if err != nil {
		return err
	}

	groups := in.Select(simconfig.BoardNets(board))
	if len(groups) == 0 {
		return fmt.Errorf("%s: no nets selected by %s", file, settingsInit)
	}
	paths, err := simconfig.WriteSettings(settingsOut, groups)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	fmt.Fprintf(out, "Wrote %d settings files for %s\n", len(paths), file)
	return nil
}
