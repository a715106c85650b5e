// Package orchestrator runs the per-user confirmation state machine: it vets
// interpreted commands, asks for confirmation when needed, executes batches
// and offers one corrective suggestion after a failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/logger"
	"github.com/doeshing/shellgate/internal/ports"
)

// Confirmation outcomes reported to the metrics recorder.
const (
	DecisionRequested = "requested"
	DecisionConfirmed = "confirmed"
	DecisionCancelled = "cancelled"
)

// Service implements the confirmation orchestrator.
type Service struct {
	Classifier  ports.SafetyClassifier
	Executor    ports.CommandExecutor
	Interpreter ports.Interpreter
	History     ports.HistoryRepository
	Targets     ports.TargetRegistry
	Metrics     ports.MetricsRecorder
	Logger      ports.Logger
	// ConfirmAll requires confirmation for every batch.
	ConfirmAll bool
	// Now defaults to time.Now.
	Now func() time.Time

	once     sync.Once
	sessions *sessionStore
}

// Validate reports missing required dependencies.
func (s *Service) Validate() error {
	if s.Classifier == nil || s.Executor == nil || s.Interpreter == nil {
		return errors.New("orchestrator.Service dependencies not satisfied")
	}
	return nil
}

func (s *Service) init() {
	s.once.Do(func() {
		s.sessions = newSessionStore()
		if s.Logger == nil {
			s.Logger = logger.Nop()
		}
		if s.Now == nil {
			s.Now = time.Now
		}
	})
}

// Handle processes one inbound message. It never returns an error: every
// failure path resolves to a reply and a state.
func (s *Service) Handle(ctx context.Context, msg domain.InboundMessage) domain.Reply {
	if err := s.Validate(); err != nil {
		return domain.Reply{Text: err.Error(), State: domain.StateIdle}
	}
	s.init()

	sess := s.sessions.acquire(msg.UserID)
	defer s.sessions.release(sess)

	text := strings.TrimSpace(msg.Text)
	if sess.pending != nil {
		return s.handleConfirmation(ctx, sess, msg.UserID, text)
	}
	if reply, ok := s.handleBuiltin(ctx, sess, text); ok {
		return reply
	}
	if text == "" {
		return domain.Reply{Text: `Nothing to do. Send "help" for usage.`, State: domain.StateIdle}
	}
	return s.handleRequest(ctx, sess, msg.UserID, text)
}

// Submit vets and runs commands as if the interpreter had proposed them.
// The CLI uses it for one-shot execution.
func (s *Service) Submit(ctx context.Context, userID string, commands []string) domain.Reply {
	if err := s.Validate(); err != nil {
		return domain.Reply{Text: err.Error(), State: domain.StateIdle}
	}
	s.init()

	sess := s.sessions.acquire(userID)
	defer s.sessions.release(sess)

	if sess.pending != nil {
		return s.reprompt(sess)
	}
	return s.submit(ctx, sess, userID, commands, false, "")
}

// Pending returns a copy of the user's pending confirmation, or nil.
func (s *Service) Pending(userID string) *domain.PendingConfirmation {
	s.init()
	sess := s.sessions.lookup(userID)
	if sess == nil {
		return nil
	}
	defer s.sessions.release(sess)
	return clonePending(sess.pending)
}

// ActiveTarget returns the user's current target.
func (s *Service) ActiveTarget(userID string) domain.Target {
	s.init()
	sess := s.sessions.lookup(userID)
	if sess == nil {
		return domain.LocalTarget()
	}
	defer s.sessions.release(sess)
	return sess.target
}

func (s *Service) handleRequest(ctx context.Context, sess *session, userID, text string) domain.Reply {
	resp, err := s.Interpreter.Interpret(ctx, ports.InterpretRequest{
		Message: text,
		Context: s.snapshot(sess, userID),
	})
	if err != nil {
		s.Logger.Error("interpreter failed", err, map[string]interface{}{"user": userID})
		return domain.Reply{Text: fmt.Sprintf("interpreter error: %v", err), State: domain.StateIdle}
	}

	if resp.Intent == nil {
		fields := map[string]interface{}{"user": userID}
		if resp.Err != nil {
			fields["reason"] = resp.Err.Error()
		}
		if errors.Is(resp.Err, domain.ErrMalformedIntent) {
			s.Logger.Warn("malformed intent, replying as chat", fields)
		} else {
			s.Logger.Debug("no intent, replying as chat", fields)
		}
		reply := strings.TrimSpace(resp.Reply)
		if reply == "" {
			reply = "I have no command to run for that."
		}
		return domain.Reply{Text: reply, State: domain.StateIdle}
	}

	return s.submit(ctx, sess, userID, resp.Intent.Commands, resp.Intent.RequiresConfirmation, resp.Intent.Explanation)
}

// submit applies the safety gate to a whole batch, then either parks it for
// confirmation or runs it.
func (s *Service) submit(ctx context.Context, sess *session, userID string, commands []string, hint bool, explanation string) domain.Reply {
	if len(commands) == 0 {
		return domain.Reply{Text: "No commands to run.", State: domain.StateIdle}
	}

	target := sess.target
	verdicts := make([]domain.SafetyVerdict, len(commands))
	var blocked []string
	needsConfirmation := s.ConfirmAll || hint
	for i, command := range commands {
		verdicts[i] = s.classify(command, target)
		s.observeVerdict(verdicts[i])
		if !verdicts[i].IsSafe {
			blocked = append(blocked, fmt.Sprintf("%s: %s", command, verdicts[i].Reason))
		}
		if verdicts[i].RequiresConfirmation {
			needsConfirmation = true
		}
	}

	if len(blocked) > 0 {
		s.Logger.Warn("batch blocked", map[string]interface{}{
			"user":    userID,
			"target":  target.DisplayName(),
			"blocked": len(blocked),
		})
		return domain.Reply{Text: blockedMessage(blocked), State: domain.StateIdle}
	}

	if needsConfirmation {
		pending := &domain.PendingConfirmation{
			ID:        uuid.NewString(),
			UserID:    userID,
			Commands:  append([]string(nil), commands...),
			Context:   s.snapshot(sess, userID),
			Target:    target,
			CreatedAt: s.Now(),
			Origin:    domain.OriginBatch,
		}
		sess.pending = pending
		s.observeConfirmation(DecisionRequested)

		var text string
		if len(commands) == 1 {
			text = singlePreview(s.Classifier.GeneratePreview(commands[0], pending.Context), explanation)
		} else {
			text = batchPreview(commands, verdicts, target, explanation)
		}
		return domain.Reply{Text: text, State: domain.StateAwaitingConfirmation, Pending: clonePending(pending)}
	}

	return s.execute(ctx, sess, userID, commands, target)
}

func (s *Service) handleConfirmation(ctx context.Context, sess *session, userID, text string) domain.Reply {
	switch parseDecision(text) {
	case decisionYes:
		pending := sess.pending
		sess.pending = nil
		s.observeConfirmation(DecisionConfirmed)
		s.Logger.Info("confirmation accepted", map[string]interface{}{
			"user":     userID,
			"pending":  pending.ID,
			"origin":   string(pending.Origin),
			"commands": len(pending.Commands),
		})
		return s.execute(ctx, sess, userID, pending.Commands, pending.Target)
	case decisionNo:
		s.Logger.Info("confirmation cancelled", map[string]interface{}{"user": userID, "pending": sess.pending.ID})
		sess.pending = nil
		s.observeConfirmation(DecisionCancelled)
		return domain.Reply{Text: "Operation cancelled.", State: domain.StateIdle}
	default:
		return s.reprompt(sess)
	}
}

func (s *Service) reprompt(sess *session) domain.Reply {
	return domain.Reply{
		Text:    pendingReminder(sess.pending),
		State:   domain.StateAwaitingConfirmation,
		Pending: clonePending(sess.pending),
	}
}

// execute runs the batch, records history, and on failure offers at most one
// corrective suggestion as a new pending confirmation.
func (s *Service) execute(ctx context.Context, sess *session, userID string, commands []string, target domain.Target) domain.Reply {
	results := s.Executor.ExecuteBatch(ctx, commands, target, true)
	for _, result := range results {
		s.observeExecution(result)
		s.record(ctx, userID, target, result)
	}
	if len(results) == 0 {
		return domain.Reply{Text: "Nothing was executed.", State: domain.StateIdle}
	}

	last := results[len(results)-1]
	sess.lastCommand = last.Command
	if last.Success {
		sess.lastError = ""
		return domain.Reply{Text: successMessage(results, target), State: domain.StateIdle, Results: results}
	}

	sess.lastError = truncate(last.ErrorText(), domain.MaxReplyOutput)
	text := failureMessage(results, len(commands), target)

	fix := s.suggestFix(ctx, userID, last, target)
	if fix == "" {
		return domain.Reply{Text: text, State: domain.StateIdle, Results: results}
	}

	pending := &domain.PendingConfirmation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Commands:  []string{fix},
		Context:   s.snapshot(sess, userID),
		Target:    target,
		CreatedAt: s.Now(),
		Origin:    domain.OriginFixSuggestion,
	}
	sess.pending = pending
	s.observeConfirmation(DecisionRequested)
	return domain.Reply{
		Text:    text + "\n\n" + fixOffer(fix),
		State:   domain.StateAwaitingConfirmation,
		Pending: clonePending(pending),
		Results: results,
	}
}

// suggestFix asks the interpreter once. Suggestions that repeat the failed
// command or fail the safety gate are dropped.
func (s *Service) suggestFix(ctx context.Context, userID string, failed domain.ExecutionResult, target domain.Target) string {
	fix, err := s.Interpreter.SuggestFix(ctx, failed.Command, failed.ErrorText())
	if err != nil {
		s.Logger.Warn("fix suggestion failed", map[string]interface{}{"user": userID, "error": err.Error()})
		return ""
	}
	fix = strings.TrimSpace(fix)
	if fix == "" || fix == strings.TrimSpace(failed.Command) {
		return ""
	}
	verdict := s.classify(fix, target)
	s.observeVerdict(verdict)
	if !verdict.IsSafe {
		s.Logger.Warn("fix suggestion blocked", map[string]interface{}{
			"user":   userID,
			"fix":    fix,
			"reason": verdict.Reason,
		})
		return ""
	}
	return fix
}

func (s *Service) classify(command string, target domain.Target) domain.SafetyVerdict {
	if target.IsLocal() {
		return s.Classifier.Classify(command)
	}
	return s.Classifier.ValidateRemoteCommand(command, target.AllowsPrivilegeEscalation())
}

func (s *Service) record(ctx context.Context, userID string, target domain.Target, result domain.ExecutionResult) {
	if s.History == nil {
		return
	}
	risk := s.classify(result.Command, target).RiskLevel
	record := domain.NewHistoryRecord(userID, target, risk, result)
	if err := s.History.Append(ctx, record); err != nil {
		s.Logger.Warn("history append failed", map[string]interface{}{
			"user":    userID,
			"command": result.Command,
			"error":   err.Error(),
		})
	}
}

func (s *Service) snapshot(sess *session, userID string) domain.ContextSnapshot {
	return domain.ContextSnapshot{
		UserID:      userID,
		TargetName:  sess.target.Name(),
		LastCommand: sess.lastCommand,
		LastError:   sess.lastError,
	}
}

// handleBuiltin answers the operator commands that never reach the interpreter.
func (s *Service) handleBuiltin(ctx context.Context, sess *session, text string) (domain.Reply, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return domain.Reply{}, false
	}
	idle := func(msg string) (domain.Reply, bool) {
		return domain.Reply{Text: msg, State: domain.StateIdle}, true
	}

	switch strings.ToLower(fields[0]) {
	case "help", "/help":
		if len(fields) == 1 {
			return idle(helpText)
		}
	case "status", "/status":
		if len(fields) == 1 {
			return idle(s.statusText(sess))
		}
	case "targets", "/targets":
		if len(fields) == 1 {
			return idle(s.targetsText(sess))
		}
	case "switch", "/switch":
		if len(fields) == 2 {
			return idle(s.switchTarget(ctx, sess, fields[1]))
		}
	}
	return domain.Reply{}, false
}

func (s *Service) statusText(sess *session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s", sess.target.DisplayName())
	if !sess.target.IsLocal() {
		fmt.Fprintf(&b, " (%s)", sess.target.Remote.String())
	}
	fmt.Fprintf(&b, "\nState: %s", sess.state())
	if sess.lastCommand != "" {
		fmt.Fprintf(&b, "\nLast command: %s", sess.lastCommand)
		if sess.lastError != "" {
			b.WriteString(" (failed)")
		}
	}
	return b.String()
}

func (s *Service) targetsText(sess *session) string {
	names := []string{domain.LocalTargetName}
	if s.Targets != nil {
		remote := s.Targets.Names()
		sort.Strings(remote)
		names = append(names, remote...)
	}
	var b strings.Builder
	b.WriteString("Targets:")
	for _, name := range names {
		marker := "  "
		if strings.EqualFold(name, sess.target.DisplayName()) {
			marker = "* "
		}
		fmt.Fprintf(&b, "\n%s%s", marker, name)
	}
	return b.String()
}

// switchTarget changes the active target only after a successful connection test.
func (s *Service) switchTarget(ctx context.Context, sess *session, name string) string {
	if strings.EqualFold(name, domain.LocalTargetName) {
		sess.target = domain.LocalTarget()
		return "Switched to local."
	}
	if s.Targets == nil {
		return fmt.Sprintf("%v: %s", domain.ErrUnknownTarget, name)
	}
	remote, ok := s.Targets.Lookup(name)
	if !ok {
		available := append([]string{domain.LocalTargetName}, s.Targets.Names()...)
		return fmt.Sprintf("%v: %s (available: %s)", domain.ErrUnknownTarget, name, strings.Join(available, ", "))
	}

	target := domain.RemoteTargetOf(remote)
	connected, detail := s.Executor.TestConnection(ctx, target)
	if !connected {
		return fmt.Sprintf("Could not connect to %s: %s\nStill on %s.", remote.Name, detail, sess.target.DisplayName())
	}
	sess.target = target
	return fmt.Sprintf("Switched to %s (%s).", remote.Name, detail)
}

func (s *Service) observeVerdict(v domain.SafetyVerdict) {
	if s.Metrics != nil {
		s.Metrics.ObserveVerdict(v)
	}
}

func (s *Service) observeExecution(r domain.ExecutionResult) {
	if s.Metrics != nil {
		s.Metrics.ObserveExecution(r)
	}
}

func (s *Service) observeConfirmation(decision string) {
	if s.Metrics != nil {
		s.Metrics.ObserveConfirmation(decision)
	}
}

type decision int

const (
	decisionUnknown decision = iota
	decisionYes
	decisionNo
)

func parseDecision(text string) decision {
	switch strings.ToLower(strings.Trim(text, " \t.!")) {
	case "yes", "y", "confirm", "proceed":
		return decisionYes
	case "no", "n", "cancel", "abort":
		return decisionNo
	}
	return decisionUnknown
}

func clonePending(p *domain.PendingConfirmation) *domain.PendingConfirmation {
	if p == nil {
		return nil
	}
	c := *p
	c.Commands = append([]string(nil), p.Commands...)
	return &c
}
