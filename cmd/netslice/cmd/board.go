package cmd

import (
	"os"

	"github.com/OpenTraceLab/OpenTraceSI/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceSI/pkg/simconfig"
)

// resolveBoard returns the board file to work on. An explicit path wins,
// then the board named by the generator input, then the working directory.
func resolveBoard(path, initPath string) (string, error) {
	if path == "" {
		path = "."
		if _, err := os.Stat(initPath); err == nil {
			in, err := simconfig.LoadOrCreateInit(initPath)
			if err != nil {
				return "", err
			}
			if in.Board != "" {
				path = in.Board
			}
		}
	}
	return simconfig.FindBoard(path)
}

func loadBoard(path, initPath string) (*pcb.Board, string, error) {
	file, err := resolveBoard(path, initPath)
	if err != nil {
		return nil, "", err
	}
	b, err := pcb.LoadBoard(file)
	if err != nil {
		return nil, "", err
	}
	return b, file, nil
}
