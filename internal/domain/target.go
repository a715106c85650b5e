package domain

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultSSHPort is used when a remote target omits its port.
const DefaultSSHPort = 22

// LocalTargetName is how the local host is addressed in chat and history.
const LocalTargetName = "local"

// RemoteTarget describes a host reachable over SSH. It only references
// credentials: a key path and the name of an environment variable holding a password.
type RemoteTarget struct {
	Name                     string `yaml:"name"`
	Host                     string `yaml:"host"`
	User                     string `yaml:"user"`
	Port                     int    `yaml:"port"`
	KeyPath                  string `yaml:"ssh_key,omitempty"`
	PasswordEnv              string `yaml:"password_env,omitempty"`
	KnownHostsPath           string `yaml:"known_hosts,omitempty"`
	AllowPrivilegeEscalation bool   `yaml:"allow_sudo"`
}

// Address returns host:port for dialing.
func (r RemoteTarget) Address() string {
	port := r.Port
	if port <= 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(r.Host, strconv.Itoa(port))
}

// String renders user@host:port.
func (r RemoteTarget) String() string {
	return fmt.Sprintf("%s@%s", r.User, r.Address())
}

// Target selects where a command runs. A nil Remote means the local host.
type Target struct {
	Remote *RemoteTarget
}

// LocalTarget returns the target for the local host.
func LocalTarget() Target {
	return Target{}
}

// RemoteTargetOf wraps a remote definition.
func RemoteTargetOf(remote RemoteTarget) Target {
	return Target{Remote: &remote}
}

// IsLocal reports whether the target is the local host.
func (t Target) IsLocal() bool {
	return t.Remote == nil
}

// Name returns the target name, or "" for the local host (history stores it as null).
func (t Target) Name() string {
	if t.Remote == nil {
		return ""
	}
	return t.Remote.Name
}

// DisplayName is Name with the local host spelled out.
func (t Target) DisplayName() string {
	if t.Remote == nil {
		return LocalTargetName
	}
	return t.Remote.Name
}

// AllowsPrivilegeEscalation reports the target's sudo/doas policy. The local host never restricts it.
func (t Target) AllowsPrivilegeEscalation() bool {
	return t.Remote == nil || t.Remote.AllowPrivilegeEscalation
}
