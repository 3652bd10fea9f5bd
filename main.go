package main

import (
	"os"

	"github.com/coreybb/thermowatch/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
