package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
)

// NewCheckCommand creates the check command, which classifies without executing.
func NewCheckCommand(container *app.Container) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Classify a command and show its preview without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCommand(cmd.OutOrStdout(), container, strings.Join(args, " "), target)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Apply this target's privilege policy")
	cmd.AddCommand(newCheckRulesCommand(container))
	return cmd
}

// NewCheckPathCommand creates the check-path command for file operations.
func NewCheckPathCommand(container *app.Container) *cobra.Command {
	var op string

	cmd := &cobra.Command{
		Use:   "check-path <path>",
		Short: "Check whether a file operation on a path is allowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, ok := domain.ParseFileOperation(op)
			if !ok {
				return fmt.Errorf("--op must be read, write or delete")
			}
			verdict := container.Classifier.CheckFileOperation(args[0], operation)
			displayVerdict(cmd.OutOrStdout(), verdict)
			if verdict.Blocked() {
				return domain.ErrSafetyBlocked
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", string(domain.FileWrite), "Operation: read, write or delete")
	return cmd
}

func newCheckRulesCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the loaded rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			stats := container.Classifier.Stats()
			fmt.Fprintf(out, "Safety level: %s\n", container.Classifier.Level())
			fmt.Fprintf(out, "Rules file: %s\n", container.Config.Safety.RulesFile)
			fmt.Fprintf(out, "Critical: %d  High risk: %d  Safe: %d  Effects: %d\n",
				stats.Critical, stats.HighRisk, stats.Safe, stats.Effects)
			return nil
		},
	}
}

// checkCommand prints the verdict and preview. A blocked command is an error
// so scripts can rely on the exit status.
func checkCommand(out io.Writer, container *app.Container, command, targetName string) error {
	target := domain.LocalTarget()
	if targetName != "" {
		remote, ok := container.Targets.Lookup(targetName)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownTarget, targetName)
		}
		target = domain.RemoteTargetOf(remote)
	}

	var verdict domain.SafetyVerdict
	if target.IsLocal() {
		verdict = container.Classifier.Classify(command)
	} else {
		verdict = container.Classifier.ValidateRemoteCommand(command, target.AllowsPrivilegeEscalation())
	}
	displayVerdict(out, verdict)

	if verdict.Blocked() {
		return domain.ErrSafetyBlocked
	}
	if verdict.RequiresConfirmation {
		fmt.Fprintln(out)
		fmt.Fprintln(out, container.Classifier.GeneratePreview(command, domain.ContextSnapshot{TargetName: target.Name()}))
	}
	return nil
}

func displayVerdict(out io.Writer, verdict domain.SafetyVerdict) {
	decision := "allow"
	switch {
	case verdict.Blocked():
		decision = "block"
	case verdict.RequiresConfirmation:
		decision = "confirm"
	}
	fmt.Fprintf(out, "Decision: %s\nRisk: %s\nReason: %s\n", decision, strings.ToUpper(string(verdict.RiskLevel)), verdict.Reason)
	if verdict.MatchedRule != "" {
		fmt.Fprintf(out, "Matched: %s\n", verdict.MatchedRule)
	}
}
