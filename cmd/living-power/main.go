package main

import (
	"os"

	"github.com/monorkin/living-power/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
