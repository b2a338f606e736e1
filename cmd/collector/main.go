package main

import (
	"os"

	"github.com/tilaka3/collector/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
