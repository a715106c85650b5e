package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// MessageHandler is the slice of the orchestrator the console transport needs.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.Reply
	ActiveTarget(userID string) domain.Target
}

func newChatCommand(container *app.Container) *cobra.Command {
	var (
		user        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive console: send requests and answer confirmations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr, container.Metrics.Handler(), container.Logger)
				defer shutdown()
			}

			out := cmd.OutOrStdout()
			console := &Console{
				Handler:  container.Orchestrator,
				UserID:   user,
				Renderer: NewRenderer(out),
				Spinner:  NewSpinner(out),
			}
			console.Renderer.Notice("shellgate %s: type a request, \"help\" for built-ins, \"exit\" to quit.", container.Config.GetUser())
			return console.Run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id for this session (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if user == "" {
			user = container.Config.GetUser()
		}
		if metricsAddr == "" {
			metricsAddr = container.Config.Metrics.Addr
		}
	}
	return cmd
}

// Console feeds stdin lines to the orchestrator as one user.
type Console struct {
	Handler  MessageHandler
	UserID   string
	Renderer *Renderer
	Spinner  *Spinner
}

// Run reads until end of input, "exit", or cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	state := domain.StateIdle
	for {
		c.Renderer.Prompt(state, c.Handler.ActiveTarget(c.UserID).DisplayName())
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			text := strings.TrimSpace(line)
			if text == "exit" || text == "quit" {
				return nil
			}
			if text == "" {
				continue
			}
			if c.Spinner != nil {
				c.Spinner.Start("working")
			}
			reply := c.Handler.Handle(ctx, domain.InboundMessage{UserID: c.UserID, Text: text})
			if c.Spinner != nil {
				c.Spinner.Stop()
			}
			c.Renderer.Reply(reply)
			state = reply.State
		}
	}
}

// serveMetrics exposes /metrics until the returned shutdown is called.
func serveMetrics(addr string, handler http.Handler, logger ports.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", err, map[string]interface{}{"addr": addr})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
