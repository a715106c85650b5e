package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/filesystem"
)

const probeCommand = "echo shellgate-ok"

// errNoCredentials is returned when a target has neither a key, a password nor an agent.
var errNoCredentials = errors.New("no credentials configured")

// sshRunner opens a fresh client and session for every attempt and closes
// both before returning, so nothing leaks across retries.
type sshRunner struct {
	dialTimeout time.Duration
}

func newSSHRunner(dialTimeout time.Duration) *sshRunner {
	return &sshRunner{dialTimeout: dialTimeout}
}

func (r *sshRunner) run(ctx context.Context, command string, target domain.Target, timeout time.Duration) attempt {
	if target.Remote == nil {
		return attempt{exitCode: -1, failure: domain.FailureTransportError, message: "ssh error: no remote target"}
	}
	remote := *target.Remote

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := r.dial(attemptCtx, remote)
	if err != nil {
		return dialFailure(err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return attempt{exitCode: -1, failure: domain.FailureTransportError, message: fmt.Sprintf("ssh error: open session: %v", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-attemptCtx.Done():
		// Closing the client unblocks Run; wait for it so the buffers are no longer written.
		_ = client.Close()
		<-done
		out := attempt{stdout: stdout.String(), stderr: stderr.String(), exitCode: -1}
		if ctx.Err() != nil {
			out.failure = domain.FailureTransportError
			out.message = "execution cancelled"
			return out
		}
		out.failure = domain.FailureTimeout
		out.message = timeoutMessage(timeout)
		return out
	}

	out := attempt{stdout: stdout.String(), stderr: stderr.String()}
	if runErr == nil {
		return out
	}

	var exitErr *ssh.ExitError
	if errors.As(runErr, &exitErr) {
		out.exitCode = exitErr.ExitStatus()
		out.failure = domain.FailureNonZeroExit
		out.message = fmt.Sprintf("command failed with exit code %d", out.exitCode)
		return out
	}

	out.exitCode = -1
	out.failure = domain.FailureTransportError
	out.message = fmt.Sprintf("ssh error: %v", runErr)
	return out
}

func (r *sshRunner) probe(ctx context.Context, target domain.Target) (bool, string) {
	if target.Remote == nil {
		return false, "no remote target"
	}
	result := r.run(ctx, probeCommand, target, r.dialTimeout+5*time.Second)
	if !result.ok() {
		return false, fmt.Sprintf("%s unreachable: %s", target.Remote.String(), result.message)
	}
	if !strings.Contains(result.stdout, "shellgate-ok") {
		return false, fmt.Sprintf("%s answered unexpectedly: %q", target.Remote.String(), strings.TrimSpace(result.stdout))
	}
	return true, fmt.Sprintf("connected to %s", target.Remote.String())
}

func (r *sshRunner) dial(ctx context.Context, remote domain.RemoteTarget) (*ssh.Client, error) {
	auths, release, err := authMethods(remote)
	if err != nil {
		return nil, err
	}
	defer release()
	hostKeys, err := hostKeyCallback(remote)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            remote.User,
		Auth:            auths,
		HostKeyCallback: hostKeys,
		Timeout:         r.dialTimeout,
	}

	addr := remote.Address()
	dialer := net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &connectError{err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, &handshakeError{err: err}
	}
	// The handshake deadline must not cap the command itself; the attempt
	// timeout is enforced by closing the client instead.
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// authMethods prefers the private key, then a running ssh-agent, then the
// password from the environment. release closes the agent connection
// once the handshake is over.
func authMethods(remote domain.RemoteTarget) ([]ssh.AuthMethod, func(), error) {
	var auths []ssh.AuthMethod
	release := func() {}

	if remote.KeyPath != "" {
		signer, err := loadSigner(filesystem.ExpandPath(remote.KeyPath))
		if err != nil {
			return nil, release, &handshakeError{err: fmt.Errorf("load key: %w", err)}
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			release = func() { conn.Close() }
		}
	}

	if remote.PasswordEnv != "" {
		if password := os.Getenv(remote.PasswordEnv); password != "" {
			auths = append(auths, ssh.Password(password))
		}
	}

	if len(auths) == 0 {
		return nil, release, &handshakeError{err: errNoCredentials}
	}
	return auths, release, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(b)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("private key %s is encrypted; load it into ssh-agent instead", path)
	}
	return nil, err
}

func hostKeyCallback(remote domain.RemoteTarget) (ssh.HostKeyCallback, error) {
	if remote.KnownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(filesystem.ExpandPath(remote.KnownHostsPath))
	if err != nil {
		return nil, &handshakeError{err: fmt.Errorf("known_hosts: %w", err)}
	}
	return cb, nil
}

// connectError wraps a TCP-level dial failure.
type connectError struct{ err error }

func (e *connectError) Error() string { return e.err.Error() }
func (e *connectError) Unwrap() error { return e.err }

// handshakeError wraps credential, host key and SSH handshake failures.
type handshakeError struct{ err error }

func (e *handshakeError) Error() string { return e.err.Error() }
func (e *handshakeError) Unwrap() error { return e.err }

// dialFailure maps connection setup errors onto the auth-failure category,
// spelling out whether authentication or reachability was the problem.
func dialFailure(err error) attempt {
	out := attempt{exitCode: -1, failure: domain.FailureAuth}
	var hs *handshakeError
	if errors.As(err, &hs) {
		out.message = fmt.Sprintf("authentication failed: %v", err)
		return out
	}
	out.message = fmt.Sprintf("connection failed: %v", err)
	return out
}
