package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
)

// Submitter runs explicit commands through the orchestrator.
type Submitter interface {
	MessageHandler
	Submit(ctx context.Context, userID string, commands []string) domain.Reply
}

func newExecCommand(container *app.Container) *cobra.Command {
	var (
		target    string
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Classify, confirm and run one command",
		Long: "exec vets the command, asks for confirmation on the terminal when the policy requires it,\n" +
			"runs it with retries and offers one suggested fix if it fails.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			run := &oneShot{
				Handler:   container.Orchestrator,
				UserID:    container.Config.GetUser(),
				Renderer:  NewRenderer(out),
				Spinner:   NewSpinner(out),
				Prompter:  NewPrompter(cmd.InOrStdin(), out),
				AssumeYes: assumeYes,
			}
			reply, err := run.Run(cmd.Context(), target, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if n := len(reply.Results); n == 0 || !reply.Results[n-1].Success {
				return fmt.Errorf("command did not complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Run on this configured target instead of locally")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm the command without asking (suggested fixes still ask)")
	return cmd
}

// oneShot drives a single command through the confirmation loop on a terminal.
type oneShot struct {
	Handler   Submitter
	UserID    string
	Renderer  *Renderer
	Spinner   *Spinner
	Prompter  *Prompter
	AssumeYes bool
}

// Run returns the last reply that carried execution results, or the final reply.
func (o *oneShot) Run(ctx context.Context, target, command string) (domain.Reply, error) {
	if target != "" {
		reply := o.Handler.Handle(ctx, domain.InboundMessage{UserID: o.UserID, Text: "switch " + target})
		if !strings.EqualFold(o.Handler.ActiveTarget(o.UserID).DisplayName(), target) {
			return reply, fmt.Errorf("%s", reply.Text)
		}
		o.Renderer.Notice("%s", reply.Text)
	}

	o.start()
	reply := o.Handler.Submit(ctx, o.UserID, []string{command})
	o.stop()
	o.Renderer.Reply(reply)

	final := reply
	first := true
	for reply.State == domain.StateAwaitingConfirmation {
		answer := "yes"
		if !(first && o.AssumeYes) {
			var err error
			if answer, err = o.Prompter.Answer("Proceed?"); err != nil {
				return final, err
			}
		}
		first = false

		o.start()
		reply = o.Handler.Handle(ctx, domain.InboundMessage{UserID: o.UserID, Text: answer})
		o.stop()
		o.Renderer.Reply(reply)
		if len(reply.Results) > 0 || reply.State == domain.StateIdle {
			final = reply
		}
	}
	return final, nil
}

func (o *oneShot) start() {
	if o.Spinner != nil {
		o.Spinner.Start("running")
	}
}

func (o *oneShot) stop() {
	if o.Spinner != nil {
		o.Spinner.Stop()
	}
}
