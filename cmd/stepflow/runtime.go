package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/dukex/stepflow/pkg/capabilities/local"
	"github.com/dukex/stepflow/pkg/cmd"
	"github.com/dukex/stepflow/pkg/engine"
	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/validation"
	"github.com/dukex/stepflow/pkg/variables"
	"github.com/dukex/stepflow/pkg/variables/redisstore"
)

// runtime holds the wired execution stack shared by the CLI commands.
type runtime struct {
	registry      *registry.Registry
	stepValidator *validation.StepValidator
	gate          *security.Gate
	runnerFactory protocol.RunnerFactory
}

// newRuntime assembles the registry, validator, gate and runner factory. When
// interactive is true confirmations and prompts go through the terminal;
// otherwise the gate auto-approves and prompt steps fail.
func newRuntime(
	logger *slog.Logger,
	store persistence.Persistence,
	publisher eventbus.EventPublisher,
	interactive bool,
	tracer trace.Tracer,
	globals variables.GlobalStore,
) (*runtime, error) {
	stepValidator, err := validation.NewStepValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build step validator: %w", err)
	}

	var interaction protocol.UserInteraction
	if interactive {
		interaction = local.NewInteraction(os.Stdin, os.Stdout)
	}

	gate := security.NewGate(logger, interaction)

	var fetcher protocol.AutomationFetcher
	if store != nil {
		fetcher = store
	}

	// The factory closes over reg so nested executions and the registry can
	// reference each other without a wiring cycle.
	var reg *registry.Registry

	runnerFactory := func() protocol.AutomationRunner {
		opts := []engine.Option{}
		if publisher != nil {
			opts = append(opts, engine.WithEventPublisher(publisher))
		}

		if store != nil {
			opts = append(opts, engine.WithExecutionLog(store))
		}

		if tracer != nil {
			opts = append(opts, engine.WithTracer(tracer))
		}

		if globals != nil {
			opts = append(opts, engine.WithGlobalStore(globals))
		}

		return engine.New(logger, reg, stepValidator, gate, opts...)
	}

	var in io.Reader
	if interactive {
		in = os.Stdin
	}

	deps := cmd.NewLocalDeps(logger, in, os.Stdout, fetcher, runnerFactory)
	reg = cmd.NewRegistry(logger, deps)

	return &runtime{
		registry:      reg,
		stepValidator: stepValidator,
		gate:          gate,
		runnerFactory: runnerFactory,
	}, nil
}

// setupTracing enables OTLP export when an exporter endpoint is configured;
// otherwise tracing stays off and the returned stop func is a no-op.
func setupTracing(ctx context.Context, logger *slog.Logger, serviceName string) (trace.Tracer, func()) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil, func() {}
	}

	tracer, shutdown, err := otelhelper.Setup(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)

		return nil, func() {}
	}

	return tracer, func() {
		if err := shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	}
}

// setupGlobals connects the Redis backend for global-scoped variables when a
// URL is configured. Without one the global scope stays off and globals is
// nil.
func setupGlobals(logger *slog.Logger, redisURL string) (variables.GlobalStore, func(), error) {
	if redisURL == "" {
		return nil, func() {}, nil
	}

	store, err := redisstore.NewStoreFromURL(redisURL, logger, 0)
	if err != nil {
		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close redis store", "error", err)
		}
	}, nil
}

// loadDefinition reads an automation definition from a JSON or YAML file.
func loadDefinition(path string) (*models.AutomationDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read automation file: %w", err)
	}

	var definition models.AutomationDefinition

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &definition)
	default:
		err = json.Unmarshal(data, &definition)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse automation file: %w", err)
	}

	return &definition, nil
}

// parseInputs converts repeated key=value flags into the inputs map.
func parseInputs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	inputs := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}

		inputs[key] = value
	}

	return inputs, nil
}
