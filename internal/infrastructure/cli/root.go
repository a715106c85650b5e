package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	Model   string
}

// NewRootCmd wires the cobra root command. The returned cleanup releases the
// container and must be called after execution.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, func(), error) {
	container, err := app.BuildContainer(ctx, app.Options{Verbose: opts.Verbose, Model: opts.Model})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := container.Close(); err != nil {
			container.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}

	root := &cobra.Command{
		Use:   "shellgate",
		Short: "Safety-gated shell execution from plain-language requests",
		Long: "shellgate turns requests into shell commands, vets them against a risk rule table,\n" +
			"asks for confirmation when needed and runs them locally or over SSH.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Read before the container is built; registered here so cobra accepts it.
	root.PersistentFlags().BoolP("verbose", "v", opts.Verbose, "Debug logging (same as SHELLGATE_DEBUG=1)")

	root.AddCommand(newChatCommand(container))
	root.AddCommand(newExecCommand(container))
	root.AddCommand(commands.NewCheckCommand(container))
	root.AddCommand(commands.NewCheckPathCommand(container))
	root.AddCommand(commands.NewTargetsCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root, cleanup, nil
}
