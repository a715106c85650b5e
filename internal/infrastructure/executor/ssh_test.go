package executor

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/logger"
)

const testPassword = "hunter2"

// reply describes how the fake server answers one exec request.
type reply struct {
	stdout string
	status uint32
	hang   bool
}

type fakeSSHServer struct {
	addr             string
	conns            atomic.Int32
	passwordAttempts atomic.Int32
}

func startFakeSSHServer(t *testing.T, handle func(command string) reply, opts ...func(*ssh.ServerConfig)) *fakeSSHServer {
	t.Helper()
	srv := &fakeSSHServer{}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			srv.passwordAttempts.Add(1)
			if string(password) == testPassword {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)
	for _, opt := range opts {
		opt(cfg)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	srv.addr = ln.Addr().String()
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			srv.conns.Add(1)
			go serveFakeConn(nc, cfg, handle)
		}
	}()
	return srv
}

func serveFakeConn(nc net.Conn, cfg *ssh.ServerConfig, handle func(string) reply) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "sessions only")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					return
				}
				_ = req.Reply(true, nil)

				out := handle(payload.Command)
				if out.hang {
					for range requests {
					}
					return
				}
				_, _ = io.WriteString(ch, out.stdout)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{out.status}))
				return
			}
		}()
	}
}

func (s *fakeSSHServer) target(t *testing.T) domain.Target {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	t.Setenv("SSH_AUTH_SOCK", "")
	t.Setenv("SHELLGATE_TEST_SSH_PASSWORD", testPassword)
	return domain.RemoteTargetOf(domain.RemoteTarget{
		Name:        "fake",
		Host:        host,
		Port:        port,
		User:        "ops",
		PasswordEnv: "SHELLGATE_TEST_SSH_PASSWORD",
	})
}

func newSSHEngine(maxRetries int, timeout time.Duration) *Engine {
	return NewEngine(domain.ExecutionOptions{
		MaxRetries:  maxRetries,
		Timeout:     timeout,
		RetryDelay:  time.Millisecond,
		DialTimeout: 2 * time.Second,
	}, logger.Nop())
}

func fakeShell(command string) reply {
	switch {
	case command == probeCommand:
		return reply{stdout: "shellgate-ok\n"}
	case strings.HasPrefix(command, "exit "):
		code, _ := strconv.Atoi(strings.TrimPrefix(command, "exit "))
		return reply{status: uint32(code)}
	case command == "sleep":
		return reply{hang: true}
	default:
		return reply{stdout: "ran: " + command + "\n"}
	}
}

func TestSSHExecuteSuccess(t *testing.T) {
	srv := startFakeSSHServer(t, fakeShell)
	e := newSSHEngine(0, 5*time.Second)

	result := e.Execute(context.Background(), "uptime", srv.target(t))

	if !result.Success || result.Stdout != "ran: uptime\n" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSSHNonZeroExitUsesFreshConnectionPerAttempt(t *testing.T) {
	srv := startFakeSSHServer(t, fakeShell)
	e := newSSHEngine(2, 5*time.Second)

	result := e.Execute(context.Background(), "exit 7", srv.target(t))

	if result.Success || result.ReturnCode != 7 || result.Failure != domain.FailureNonZeroExit {
		t.Fatalf("expected exit 7, got %+v", result)
	}
	if result.Retries != 2 {
		t.Fatalf("expected 2 retries, got %d", result.Retries)
	}
	if got := srv.conns.Load(); got != 3 {
		t.Fatalf("expected one connection per attempt, got %d", got)
	}
}

func TestSSHTimeoutIsNotRetried(t *testing.T) {
	srv := startFakeSSHServer(t, fakeShell)
	e := newSSHEngine(3, 300*time.Millisecond)

	start := time.Now()
	result := e.Execute(context.Background(), "sleep", srv.target(t))

	if result.Failure != domain.FailureTimeout || result.Retries != 0 {
		t.Fatalf("expected a single timeout, got %+v", result)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timed-out session was not torn down")
	}
	if got := srv.conns.Load(); got != 1 {
		t.Fatalf("expected one connection, got %d", got)
	}
}

func TestSSHWrongPasswordIsAuthFailure(t *testing.T) {
	srv := startFakeSSHServer(t, fakeShell)
	target := srv.target(t)
	t.Setenv("SHELLGATE_TEST_SSH_PASSWORD", "wrong")
	e := newSSHEngine(1, 5*time.Second)

	result := e.Execute(context.Background(), "uptime", target)

	if result.Failure != domain.FailureAuth || !strings.HasPrefix(result.ErrorMessage, "authentication failed") {
		t.Fatalf("expected authentication failure, got %+v", result)
	}
	if result.Retries != 1 {
		t.Fatalf("auth failures are retried, got %d retries", result.Retries)
	}
}

func TestSSHUnreachableHostIsConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	t.Setenv("SSH_AUTH_SOCK", "")
	t.Setenv("SHELLGATE_TEST_SSH_PASSWORD", testPassword)
	target := domain.RemoteTargetOf(domain.RemoteTarget{
		Name:        "gone",
		Host:        "127.0.0.1",
		Port:        addr.Port,
		User:        "ops",
		PasswordEnv: "SHELLGATE_TEST_SSH_PASSWORD",
	})
	e := newSSHEngine(0, 5*time.Second)

	result := e.Execute(context.Background(), "uptime", target)

	if result.Failure != domain.FailureAuth || !strings.HasPrefix(result.ErrorMessage, "connection failed") {
		t.Fatalf("expected connection failure, got %+v", result)
	}
}

func TestSSHMissingCredentials(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	target := domain.RemoteTargetOf(domain.RemoteTarget{Name: "bare", Host: "127.0.0.1", User: "ops"})
	e := newSSHEngine(0, time.Second)

	result := e.Execute(context.Background(), "uptime", target)

	if !strings.Contains(result.ErrorMessage, errNoCredentials.Error()) {
		t.Fatalf("expected missing credential error, got %q", result.ErrorMessage)
	}
}

func TestSSHTestConnection(t *testing.T) {
	srv := startFakeSSHServer(t, fakeShell)
	e := newSSHEngine(0, time.Second)

	ok, msg := e.TestConnection(context.Background(), srv.target(t))
	if !ok {
		t.Fatalf("probe failed: %s", msg)
	}
	if !strings.Contains(msg, "ops@") {
		t.Fatalf("probe message should name the target, got %q", msg)
	}
}

func startTestAgent(t *testing.T, key ed25519.PrivateKey) string {
	t.Helper()
	keyring := agent.NewKeyring()
	if err := keyring.Add(agent.AddedKey{PrivateKey: key}); err != nil {
		t.Fatalf("add agent key: %v", err)
	}
	sock := filepath.Join(t.TempDir(), "agent.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_ = agent.ServeAgent(keyring, conn)
			}()
		}
	}()
	return sock
}

func TestSSHAgentIsTriedBeforePassword(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	authorized, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	srv := startFakeSSHServer(t, fakeShell, func(cfg *ssh.ServerConfig) {
		cfg.PublicKeyCallback = func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if string(key.Marshal()) == string(authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown key")
		}
	})
	target := srv.target(t)
	t.Setenv("SSH_AUTH_SOCK", startTestAgent(t, priv))
	e := newSSHEngine(0, 5*time.Second)

	result := e.Execute(context.Background(), "uptime", target)

	if !result.Success {
		t.Fatalf("expected agent login to succeed, got %+v", result)
	}
	if got := srv.passwordAttempts.Load(); got != 0 {
		t.Fatalf("password should not be offered once the agent key is accepted, got %d attempts", got)
	}
}
