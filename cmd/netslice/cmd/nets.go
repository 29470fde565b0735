package cmd

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
	"github.com/spf13/cobra"
)

var netsCmd = &cobra.Command{
	Use:   "nets [board]",
	Short: "List net classes and their nets",
	Long: `List every net class of the board with its nets. Controlled impedance
classes are marked with their impedance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNets,
}

func init() {
	rootCmd.AddCommand(netsCmd)
}

func runNets(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	board, file, err := loadBoard(path, simconfig.DefaultInit)
	if err != nil {
		return err
	}

	byClass := make(map[string][]string)
	for _, n := range simconfig.BoardNets(board) {
		byClass[n.Class] = append(byClass[n.Class], n.Name)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Board: %s\n", file)
	for _, c := range classes {
		label := c
		if ohms, diff, ok := pcb.ClassImpedance(c); ok && pcb.IsControlledImpedance(c) {
			kind := "single ended"
			if diff {
				kind = "differential"
			}
			label = fmt.Sprintf("%s (%g Ohm %s)", c, ohms, kind)
		}
		fmt.Fprintf(out, "\n%s\n", label)
		for _, n := range byClass[c] {
			fmt.Fprintf(out, "  %s\n", n)
		}
	}
	return nil
}
