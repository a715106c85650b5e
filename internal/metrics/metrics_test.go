package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/doeshing/shellgate/internal/domain"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveVerdict(domain.SafetyVerdict{RiskLevel: domain.RiskCritical})
	r.ObserveVerdict(domain.SafetyVerdict{RiskLevel: domain.RiskLow})
	r.ObserveVerdict(domain.SafetyVerdict{RiskLevel: domain.RiskLow})
	r.ObserveExecution(domain.ExecutionResult{Success: true, Duration: time.Second})
	r.ObserveExecution(domain.ExecutionResult{Failure: domain.FailureTimeout, Retries: 0})
	r.ObserveExecution(domain.ExecutionResult{Failure: domain.FailureNonZeroExit, Retries: 3})
	r.ObserveConfirmation("requested")
	r.ObserveConfirmation("confirmed")

	if got := testutil.ToFloat64(r.verdicts.WithLabelValues("low")); got != 2 {
		t.Fatalf("low verdicts = %v", got)
	}
	if got := testutil.ToFloat64(r.executions.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout executions = %v", got)
	}
	if got := testutil.ToFloat64(r.retries); got != 3 {
		t.Fatalf("retries = %v", got)
	}
	if got := testutil.ToFloat64(r.confirmations.WithLabelValues("confirmed")); got != 1 {
		t.Fatalf("confirmed = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveVerdict(domain.SafetyVerdict{RiskLevel: domain.RiskHigh})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `shellgate_verdicts_total{risk="high"} 1`) {
		t.Fatalf("metrics output missing verdict counter:\n%s", body)
	}
}
