package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/netslice"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "netslice",
	Short: "Cut signal integrity simulation slices out of KiCad boards",
	Long: `netslice cuts a small board around one controlled impedance net or
differential pair, places simulation ports on its pads and writes the
simulation.json and netinfo.json files the field solver reads.

Examples:
  netslice settings                          # Write settings for every impedance net
  netslice slice                             # Slice every settings file in si-wrapper-cfg
  netslice slice -f si-wrapper-cfg/CLK.json  # Slice one net
  netslice renumerate --dir slices/CLK       # Close port numbering gaps after editing`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		netslice.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log per track and per port decisions")
}
