package main

import (
	"os"

	"github.com/tradekit-dev/tradekit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
