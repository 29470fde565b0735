package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/netslice"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
	"github.com/spf13/cobra"
)

var renumerateDir string

var renumerateCmd = &cobra.Command{
	Use:   "renumerate",
	Short: "Close gaps in simulation port numbers",
	Long: `After simulation ports were deleted from a slice by hand, rename the
remaining SP<n> footprints to SP1..SPk and drop the records of the
deleted ports from simulation.json.`,
	Args: cobra.NoArgs,
	RunE: runRenumerate,
}

func init() {
	rootCmd.AddCommand(renumerateCmd)
	renumerateCmd.Flags().StringVar(&renumerateDir, "dir", ".", "slice directory")
}

func runRenumerate(cmd *cobra.Command, args []string) error {
	file, err := simconfig.FindBoard(renumerateDir)
	if err != nil {
		return err
	}
	board, err := pcb.LoadBoard(file)
	if err != nil {
		return err
	}
	simPath := filepath.Join(filepath.Dir(file), simconfig.SimulationFile)
	sim, err := simconfig.LoadSimulation(simPath)
	if err != nil {
		return err
	}

	old := netslice.RenumberPorts(board)
	sim.Renumber(old)
	if err := board.Save(file); err != nil {
		return err
	}
	if err := sim.Save(simPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d ports, previously %v\n", file, len(old), old)
	return nil
}
