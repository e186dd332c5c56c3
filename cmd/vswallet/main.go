// Package main is the entry point for the vswallet host.
package main

import (
	"os"

	"github.com/vswallet/vswallet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
