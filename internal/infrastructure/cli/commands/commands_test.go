package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/infrastructure/config"
	"github.com/doeshing/shellgate/internal/infrastructure/history"
	"github.com/doeshing/shellgate/internal/infrastructure/security"
)

func testContainer(t *testing.T) *app.Container {
	t.Helper()
	cfg := config.Default()
	cfg.Targets = []domain.RemoteTarget{
		{Name: "web1", Host: "10.0.0.5", User: "deploy", Port: 22, KeyPath: "~/.ssh/id_ed25519"},
		{Name: "db1", Host: "10.0.0.6", User: "dba", Port: 22, AllowPrivilegeEscalation: true},
	}
	classifier, err := security.NewClassifier(security.Policy{Level: domain.SafetyLevelMedium})
	require.NoError(t, err)
	return &app.Container{
		Config:     cfg,
		Classifier: classifier,
		Targets:    config.NewTargetRegistry(cfg),
	}
}

func TestCheckCommandVerdicts(t *testing.T) {
	c := testContainer(t)

	var out bytes.Buffer
	require.NoError(t, checkCommand(&out, c, "df -h", ""))
	assert.Contains(t, out.String(), "Decision: allow")

	out.Reset()
	require.NoError(t, checkCommand(&out, c, "systemctl stop nginx", ""))
	assert.Contains(t, out.String(), "Decision: confirm")
	assert.Contains(t, out.String(), "Proceed with execution? (yes/no)")

	out.Reset()
	err := checkCommand(&out, c, "rm -rf /", "")
	assert.True(t, errors.Is(err, domain.ErrSafetyBlocked))
	assert.Contains(t, out.String(), "Risk: CRITICAL")
}

func TestCheckCommandAppliesTargetPolicy(t *testing.T) {
	c := testContainer(t)
	var out bytes.Buffer

	err := checkCommand(&out, c, "sudo reboot", "web1")
	assert.True(t, errors.Is(err, domain.ErrSafetyBlocked))
	assert.Contains(t, out.String(), "sudo commands not allowed on this target")

	out.Reset()
	require.NoError(t, checkCommand(&out, c, "sudo reboot", "DB1"))
	assert.Contains(t, out.String(), "Decision: confirm")

	err = checkCommand(&out, c, "uptime", "nowhere")
	assert.True(t, errors.Is(err, domain.ErrUnknownTarget))
}

func TestListTargets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listTargets(&out, testContainer(t)))

	text := out.String()
	assert.Contains(t, text, "deploy@10.0.0.5:22")
	assert.Contains(t, text, "key ~/.ssh/id_ed25519")
	assert.Contains(t, text, "agent")
}

func seededStore(t *testing.T) history.Store {
	t.Helper()
	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Append(ctx, domain.HistoryRecord{
		Timestamp: now.Add(-time.Hour), UserID: "ops", Command: "uptime", Success: true, RiskLevel: domain.RiskLow,
	}))
	require.NoError(t, store.Append(ctx, domain.HistoryRecord{
		Timestamp: now, UserID: "ops", Command: "systemctl stop nginx", TargetName: "web1",
		ExitCode: 5, Failure: domain.FailureNonZeroExit, Retries: 3, RiskLevel: domain.RiskHigh,
	}))
	return store
}

func TestListHistoryEntries(t *testing.T) {
	store := seededStore(t)
	var out bytes.Buffer

	require.NoError(t, listHistoryEntries(context.Background(), &out, store, domain.HistoryQuery{Limit: 10}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "exit 5 (3 retries)")
	assert.Contains(t, lines[1], "web1")
	assert.Contains(t, lines[2], "local")
}

func TestExportHistoryToStdout(t *testing.T) {
	store := seededStore(t)
	var out bytes.Buffer

	require.NoError(t, exportHistory(context.Background(), &out, store, "-"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"command":"uptime"`)
}

func TestShowHistoryStats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, showHistoryStats(context.Background(), &out, seededStore(t)))

	text := out.String()
	assert.Contains(t, text, "Success rate: 50.0%")
	assert.Contains(t, text, "high: 1")
	assert.Contains(t, text, "systemctl start")
}

func TestGetConfigurationValue(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, getConfigurationValue(&out, config.Default(), "safety.level"))
	assert.Equal(t, "medium\n", out.String())

	assert.Error(t, getConfigurationValue(&out, config.Default(), "safety.nope"))
}

func TestShowConfigurationDiff(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, showConfigurationDiff(&out, config.Default()))
	assert.Equal(t, msgNoDifferencesFromDefault+"\n", out.String())

	cfg := config.Default()
	cfg.Safety.Level = "high"
	out.Reset()
	require.NoError(t, showConfigurationDiff(&out, cfg))
	assert.Contains(t, out.String(), `"high"`)
}
