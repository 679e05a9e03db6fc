package main

import (
	"os"

	"stacker.dev/stacker/internal/cli"
	"stacker.dev/stacker/internal/stkerrors"
)

var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(stkerrors.ExitCode(err))
	}
}
