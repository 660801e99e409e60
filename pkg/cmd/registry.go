// Package cmd provides common initialization for the command-line entry
// points: storage, event bus and a fully registered executor registry.
package cmd

import (
	"io"
	"log/slog"

	"github.com/dukex/stepflow/pkg/capabilities/local"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
)

// NewLocalDeps wires the host-process capability implementations. The
// interaction surface reads from in and writes to out; pass nil for in to run
// headless (confirmations auto-approve, prompts fail).
func NewLocalDeps(
	logger *slog.Logger,
	in io.Reader,
	out io.Writer,
	fetcher protocol.AutomationFetcher,
	runnerFactory protocol.RunnerFactory,
) registry.BuiltinDeps {
	deps := registry.BuiltinDeps{
		Notifier:      local.NewNotifier(logger),
		Composer:      local.NewComposer(logger),
		Clipboard:     local.NewClipboard(),
		Location:      local.NewStaticLocation(0, 0),
		URLLauncher:   local.NewLauncher(logger),
		Speech:        local.NewSpeaker(logger),
		ShareSheet:    local.NewSharer(logger),
		Fetcher:       fetcher,
		RunnerFactory: runnerFactory,
	}

	if in != nil {
		deps.Interaction = local.NewInteraction(in, out)
	}

	return deps
}

// NewRegistry builds a registry with every built-in executor registered.
func NewRegistry(logger *slog.Logger, deps registry.BuiltinDeps) *registry.Registry {
	reg := registry.NewRegistry(logger)
	registry.RegisterBuiltins(reg, deps)

	return reg
}
