package main

import (
	"os"

	"github.com/drblury/ingressflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
