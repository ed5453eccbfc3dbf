package main

import (
	"os"

	"cyber-sensei-progress/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
