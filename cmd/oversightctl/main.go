package main

import (
	"fmt"
	"os"

	"github.com/SscSPs/oversight/internal/cli"
	"github.com/fatih/color"
)

func main() {
	if err := cli.NewRootCmd(cli.DefaultEnv()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("Error:"), err)
		os.Exit(1)
	}
}
