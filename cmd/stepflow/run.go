package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stepflow/pkg/cmd"
	"github.com/dukex/stepflow/pkg/log"
	"github.com/dukex/stepflow/pkg/models"
)

var errExecutionFailed = errors.New("execution failed")

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Execute an automation from a JSON or YAML file",
		ArgsUsage: "<automation-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage URL for automations and the execution log",
				Value:   "file://./.stepflow",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL backing global-scoped variables",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringSliceFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Initial variable as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "User identity recorded on the execution",
			},
			&cli.BoolFlag{
				Name:  "non-interactive",
				Usage: "Auto-approve confirmations instead of prompting",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAutomation,
	}
}

func runAutomation(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	path := command.Args().First()
	if path == "" {
		return errors.New("automation file is required")
	}

	definition, err := loadDefinition(path)
	if err != nil {
		return err
	}

	inputs, err := parseInputs(command.StringSlice("input"))
	if err != nil {
		return err
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "cli", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	tracer, stopTracing := setupTracing(ctx, logger, "stepflow-cli")
	defer stopTracing()

	globals, closeGlobals, err := setupGlobals(logger, command.String("redis-url"))
	if err != nil {
		return err
	}

	defer closeGlobals()

	rt, err := newRuntime(logger, store, eventBus, !command.Bool("non-interactive"), tracer, globals)
	if err != nil {
		return err
	}

	runner := rt.runnerFactory()
	result := runner.Execute(ctx, definition, inputs, models.RunOptions{
		UserID: command.String("user-id"),
	})

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(encoded))

	if !result.Success {
		return fmt.Errorf("%w: %s", errExecutionFailed, result.Error)
	}

	return nil
}

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check an automation file without executing it",
		ArgsUsage: "<automation-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: validateAutomation,
	}
}

func validateAutomation(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	path := command.Args().First()
	if path == "" {
		return errors.New("automation file is required")
	}

	definition, err := loadDefinition(path)
	if err != nil {
		return err
	}

	rt, err := newRuntime(logger, nil, nil, false, nil, nil)
	if err != nil {
		return err
	}

	var issues []string

	if err := definition.CheckShape(); err != nil {
		issues = append(issues, err.Error())
	}

	for _, step := range definition.Steps {
		if !rt.registry.IsStepTypeSupported(step.Type) {
			issues = append(issues, fmt.Sprintf("step %q: unsupported step type %q", step.ID, step.Type))

			continue
		}

		if !rt.stepValidator.Supports(step.Type) {
			continue
		}

		for _, issue := range rt.stepValidator.Validate(step.Type, step.Config) {
			issues = append(issues, fmt.Sprintf("step %q: %s: %s", step.ID, issue.Field, issue.Message))
		}
	}

	verdict := rt.gate.ValidateAutomation(definition)
	issues = append(issues, verdict.Errors...)

	for _, warning := range verdict.Warnings {
		fmt.Fprintf(os.Stdout, "warning: %s\n", warning)
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stdout, "error: %s\n", issue)
		}

		return fmt.Errorf("automation %q has %d issue(s)", definition.Title, len(issues))
	}

	fmt.Fprintf(os.Stdout, "automation %q is valid (%d steps)\n", definition.Title, len(definition.Steps))

	return nil
}
