package main

import (
	"os"

	"github.com/duynguyen020304/pz-manager-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
