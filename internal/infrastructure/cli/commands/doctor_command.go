package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, rules, history and targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, cmd.OutOrStdout(), container)
		},
	}
}

func runDoctorDiagnostics(cmd *cobra.Command, out io.Writer, container *app.Container) error {
	if container.DoctorService == nil {
		return fmt.Errorf("doctor service unavailable")
	}

	report, err := container.DoctorService.Run(cmd.Context())

	// Display report even if there were errors
	displayDoctorReport(out, report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if report.Failed() {
		return fmt.Errorf("%d check(s) failed", report.Count(domain.HealthError))
	}
	return nil
}

func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
	fmt.Fprintf(out, "\n%d ok, %d warning(s), %d error(s)\n",
		report.Count(domain.HealthOK), report.Count(domain.HealthWarn), report.Count(domain.HealthError))
}
