package main

import (
	"os"

	"github.com/ghcr-tools/pkgsweep/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
