package main

import (
	"os"

	"modernstack.dev/ragapi/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
