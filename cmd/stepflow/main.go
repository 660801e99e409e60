// Package main provides the stepflow command-line interface.
package main

import (
	"context"
	"os"

	"github.com/dukex/stepflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "stepflow",
		Usage:                 "Create, validate and run automations",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			ValidateCommand(),
			ServeCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
