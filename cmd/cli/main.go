package main

import (
	"os"

	"github.com/carepulse-dev/carepulse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
