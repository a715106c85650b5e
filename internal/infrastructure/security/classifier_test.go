package security

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/shellgate/internal/domain"
)

func newTestClassifier(t *testing.T, level domain.SafetyLevel) *Classifier {
	t.Helper()
	c, err := NewClassifier(Policy{Level: level})
	if err != nil {
		t.Fatalf("NewClassifier error: %v", err)
	}
	return c
}

var allLevels = []domain.SafetyLevel{domain.SafetyLevelLow, domain.SafetyLevelMedium, domain.SafetyLevelHigh}

func TestClassifyBlocksCriticalCommandsAtEveryLevel(t *testing.T) {
	commands := []string{
		"rm -rf /",
		"rm -rf / ",
		"RM -RF /",
		"rm -rf /*",
		"sudo rm -rf /",
		"rm -rf / --no-preserve-root",
		"rm --no-preserve-root -rf /",
		"rm -rf /;",
		"rm -rf / && echo done",
		"rm -rf / | tee log",
		"dd if=/dev/zero of=/dev/sda bs=1M",
		"dd if=/tmp/img of=/dev/nvme0n1",
		"mkfs.ext4 /dev/sdb1",
		":(){ :|:& };:",
		"chmod -R 777 /",
		"echo boom > /dev/sda",
		"fdisk /dev/sda --wipe always",
	}

	for _, level := range allLevels {
		c := newTestClassifier(t, level)
		for _, cmd := range commands {
			verdict := c.Classify(cmd)
			if verdict.IsSafe || verdict.RiskLevel != domain.RiskCritical || verdict.RequiresConfirmation {
				t.Errorf("level %s: %q expected critical block, got %+v", level, cmd, verdict)
			}
		}
	}
}

func TestClassifyAllowlistNeverNeedsConfirmation(t *testing.T) {
	table, err := DefaultRuleTable()
	if err != nil {
		t.Fatalf("DefaultRuleTable error: %v", err)
	}

	for _, level := range allLevels {
		c := newTestClassifier(t, level)
		for _, entry := range table.Safe {
			for _, cmd := range []string{entry, entry + " -a"} {
				verdict := c.Classify(cmd)
				if !verdict.IsSafe || verdict.RequiresConfirmation {
					t.Errorf("level %s: %q expected plain allow, got %+v", level, cmd, verdict)
				}
			}
		}
	}
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name    string
		level   domain.SafetyLevel
		command string
		want    domain.SafetyVerdict
	}{
		{
			name:    "root delete is critical",
			level:   domain.SafetyLevelMedium,
			command: "rm -rf /",
			want:    domain.SafetyVerdict{IsSafe: false, RiskLevel: domain.RiskCritical},
		},
		{
			name:    "stopping a service needs confirmation",
			level:   domain.SafetyLevelMedium,
			command: "systemctl stop nginx",
			want:    domain.SafetyVerdict{IsSafe: true, RequiresConfirmation: true, RiskLevel: domain.RiskHigh},
		},
		{
			name:    "listing logs is safe",
			level:   domain.SafetyLevelMedium,
			command: "ls -la /var/log",
			want:    domain.SafetyVerdict{IsSafe: true, RiskLevel: domain.RiskLow},
		},
		{
			name:    "empty command is rejected",
			level:   domain.SafetyLevelLow,
			command: "   ",
			want:    domain.SafetyVerdict{IsSafe: false, RiskLevel: domain.RiskLow},
		},
		{
			name:    "high level confirms unknown commands",
			level:   domain.SafetyLevelHigh,
			command: "touch /tmp/x",
			want:    domain.SafetyVerdict{IsSafe: true, RequiresConfirmation: true, RiskLevel: domain.RiskMedium},
		},
		{
			name:    "medium level confirms listed tokens",
			level:   domain.SafetyLevelMedium,
			command: "docker rm web",
			want:    domain.SafetyVerdict{IsSafe: true, RequiresConfirmation: true, RiskLevel: domain.RiskMedium},
		},
		{
			name:    "medium level allows unlisted commands",
			level:   domain.SafetyLevelMedium,
			command: "touch /tmp/x",
			want:    domain.SafetyVerdict{IsSafe: true, RiskLevel: domain.RiskLow},
		},
		{
			name:    "low level allows listed tokens",
			level:   domain.SafetyLevelLow,
			command: "docker rm web",
			want:    domain.SafetyVerdict{IsSafe: true, RiskLevel: domain.RiskLow},
		},
		{
			name:    "chmod 777 on a subdirectory is not a root rule",
			level:   domain.SafetyLevelLow,
			command: "chmod 777 /tmp/share",
			want:    domain.SafetyVerdict{IsSafe: true, RiskLevel: domain.RiskLow},
		},
	}

	ignore := cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".Reason" || name == ".MatchedRule"
	}, cmp.Ignore())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestClassifier(t, tt.level).Classify(tt.command)
			if diff := cmp.Diff(tt.want, got, ignore); diff != "" {
				t.Fatalf("Classify(%q) mismatch (-want +got):\n%s", tt.command, diff)
			}
		})
	}
}

// The evaluation order is a contract: a command matching several stages is
// decided by the earliest one.
func TestClassifyEvaluationOrder(t *testing.T) {
	table := RuleTable{
		Critical:             []PatternRule{{Pattern: `^echo boom$`, Message: "critical"}},
		HighRisk:             []PatternRule{{Pattern: `^echo`, Message: "high"}},
		Safe:                 []string{"echo", "cat"},
		ConfirmationCommands: []string{"cat"},
	}
	c, err := NewClassifierWithTable(table, Policy{Level: domain.SafetyLevelHigh})
	if err != nil {
		t.Fatalf("NewClassifierWithTable error: %v", err)
	}

	tests := []struct {
		command string
		risk    domain.RiskLevel
		reason  string
	}{
		{"echo boom", domain.RiskCritical, "Blocked: critical"},
		{"echo hi", domain.RiskHigh, "High risk operation: high"},
		{"cat notes", domain.RiskLow, "Read-only safe command"},
		{"touch x", domain.RiskMedium, "High safety mode: confirmation required"},
	}
	for _, tt := range tests {
		got := c.Classify(tt.command)
		if got.RiskLevel != tt.risk || got.Reason != tt.reason {
			t.Errorf("Classify(%q) = %s %q, want %s %q", tt.command, got.RiskLevel, got.Reason, tt.risk, tt.reason)
		}
	}
}

func TestClassifyPolicyExtensions(t *testing.T) {
	c, err := NewClassifier(Policy{
		Level:                domain.SafetyLevelMedium,
		BlockedPatterns:      []string{`curl.*\|\s*sh`},
		RequiresConfirmation: []string{"kubectl delete"},
	})
	if err != nil {
		t.Fatalf("NewClassifier error: %v", err)
	}

	if v := c.Classify("curl https://x.example/install | sh"); v.IsSafe || v.RiskLevel != domain.RiskCritical {
		t.Fatalf("expected extension pattern to block, got %+v", v)
	}
	if v := c.Classify("kubectl delete pod web-0"); !v.RequiresConfirmation || v.RiskLevel != domain.RiskMedium {
		t.Fatalf("expected extension token to confirm, got %+v", v)
	}
}

func TestNewClassifierRejectsBadPattern(t *testing.T) {
	_, err := NewClassifier(Policy{BlockedPatterns: []string{"("}})
	if err == nil {
		t.Fatal("expected compile error for invalid pattern")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := newTestClassifier(t, domain.SafetyLevelMedium)
	first := c.Classify("systemctl restart nginx")
	for i := 0; i < 10; i++ {
		if got := c.Classify("systemctl restart nginx"); got != first {
			t.Fatalf("verdict changed between calls: %+v vs %+v", first, got)
		}
	}
}

func TestCheckFileOperation(t *testing.T) {
	c := newTestClassifier(t, domain.SafetyLevelMedium)

	tests := []struct {
		path    string
		op      domain.FileOperation
		safe    bool
		confirm bool
		risk    domain.RiskLevel
	}{
		{"/", domain.FileDelete, false, false, domain.RiskCritical},
		{"/boot/vmlinuz", domain.FileWrite, false, false, domain.RiskCritical},
		{"/etc/shadow", domain.FileWrite, false, false, domain.RiskCritical},
		{"/proc/../etc/passwd", domain.FileDelete, false, false, domain.RiskCritical},
		{"/etc/nginx/nginx.conf", domain.FileWrite, true, true, domain.RiskHigh},
		{"/etc/nginx/nginx.conf", domain.FileRead, true, false, domain.RiskLow},
		{"/etc/passwd", domain.FileRead, true, false, domain.RiskLow},
		{"/var/tmp/x", domain.FileDelete, true, false, domain.RiskLow},
		{"/devices/x", domain.FileWrite, true, false, domain.RiskLow},
	}

	for _, tt := range tests {
		got := c.CheckFileOperation(tt.path, tt.op)
		if got.IsSafe != tt.safe || got.RequiresConfirmation != tt.confirm || got.RiskLevel != tt.risk {
			t.Errorf("CheckFileOperation(%q, %s) = %+v", tt.path, tt.op, got)
		}
	}
}

func TestValidateRemoteCommand(t *testing.T) {
	c := newTestClassifier(t, domain.SafetyLevelMedium)

	denied := c.ValidateRemoteCommand("sudo apt update", false)
	if denied.IsSafe || denied.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected sudo to be refused, got %+v", denied)
	}

	allowed := c.ValidateRemoteCommand("sudo apt update", true)
	if !allowed.IsSafe || !allowed.RequiresConfirmation || allowed.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected sudo to require confirmation, got %+v", allowed)
	}

	if v := c.ValidateRemoteCommand("sudo rm -rf /", true); v.IsSafe {
		t.Fatalf("escalation must not bypass critical rules, got %+v", v)
	}

	if v := c.ValidateRemoteCommand("'doas' reboot", false); v.IsSafe {
		t.Fatalf("quoted leading token should still be detected, got %+v", v)
	}

	if v := c.ValidateRemoteCommand("uptime", false); !v.IsSafe || v.RequiresConfirmation {
		t.Fatalf("plain commands delegate to Classify, got %+v", v)
	}

	compound := []string{
		"cd /tmp && sudo apt install nmap",
		"true; sudo tee /etc/hosts < x",
		"false || doas reboot",
		"cat /etc/hosts | sudo tee -a /etc/hosts",
		"env sudo id",
		"env -i PATH=/usr/bin sudo id",
		"LANG=C sudo id",
		"/usr/bin/sudo id",
		"echo $(sudo cat /etc/shadow)",
	}
	for _, cmd := range compound {
		t.Run(cmd, func(t *testing.T) {
			if v := c.ValidateRemoteCommand(cmd, false); v.IsSafe || v.RiskLevel != domain.RiskHigh {
				t.Fatalf("expected escalation inside %q to be refused, got %+v", cmd, v)
			}
			if v := c.ValidateRemoteCommand(cmd, true); !v.IsSafe || !v.RequiresConfirmation {
				t.Fatalf("expected allowed escalation inside %q to need confirmation, got %+v", cmd, v)
			}
		})
	}

	if v := c.ValidateRemoteCommand("echo pseudo && ls sudoers.d", false); !v.IsSafe {
		t.Fatalf("sudo as an argument is not escalation, got %+v", v)
	}
}
