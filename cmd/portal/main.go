package main

import (
	"os"

	"github.com/pyramid-aftercare/portal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
