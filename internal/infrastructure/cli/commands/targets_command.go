package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
)

// NewTargetsCommand creates the targets command with list and test subcommands.
func NewTargetsCommand(container *app.Container) *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Inspect configured SSH targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTargets(cmd.OutOrStdout(), container)
		},
	}

	targetsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured targets",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listTargets(cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "test <name>",
			Short: "Open and close a connection to a target",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				remote, ok := container.Targets.Lookup(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrUnknownTarget, args[0])
				}
				connected, detail := container.Engine.TestConnection(cmd.Context(), domain.RemoteTargetOf(remote))
				if !connected {
					return fmt.Errorf("%s: %s", remote.Name, detail)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", remote.Name, detail)
				return nil
			},
		},
	)

	return targetsCmd
}

func listTargets(out io.Writer, container *app.Container) error {
	if len(container.Config.Targets) == 0 {
		fmt.Fprintln(out, msgNoTargets)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tAUTH\tSUDO")
	for _, t := range container.Config.Targets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", t.Name, t.String(), authSummary(t), t.AllowPrivilegeEscalation)
	}
	return w.Flush()
}

func authSummary(t domain.RemoteTarget) string {
	switch {
	case t.KeyPath != "":
		return "key " + t.KeyPath
	case t.PasswordEnv != "":
		return "password $" + t.PasswordEnv
	default:
		return "agent"
	}
}
