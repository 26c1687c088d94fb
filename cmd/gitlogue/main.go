package main

import (
	"os"

	"github.com/stwalsh4118/gitlogue/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
