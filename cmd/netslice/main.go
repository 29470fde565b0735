package main

import "github.com/OpenTraceLab/OpenTraceSI/cmd/netslice/cmd"

func main() {
	cmd.Execute()
}
