package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// scrape は/metricsエンドポイントをスクレイプして本文を返す。
func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()

	server := httptest.NewServer(SetupMetricsRoute(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func TestCollector_RecordLoginMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure("provider")
	c.RecordSessionIssued()
	c.RecordSessionRevoked()

	body := scrape(t, reg)

	if !strings.Contains(body, "taskdeck_login_success_total 2") {
		t.Error("expected taskdeck_login_success_total 2")
	}
	if !strings.Contains(body, `taskdeck_login_fail_total{reason="provider"} 1`) {
		t.Error("expected taskdeck_login_fail_total with provider reason")
	}
	if !strings.Contains(body, "taskdeck_session_issued_total 1") {
		t.Error("expected taskdeck_session_issued_total 1")
	}
	if !strings.Contains(body, "taskdeck_session_revoked_total 1") {
		t.Error("expected taskdeck_session_revoked_total 1")
	}
}

func TestCollector_RecordTaskOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTaskOp("create")
	c.RecordTaskOp("create")
	c.RecordTaskOp("delete")

	body := scrape(t, reg)

	if !strings.Contains(body, `taskdeck_task_operations_total{op="create"} 2`) {
		t.Error("expected create op count 2")
	}
	if !strings.Contains(body, `taskdeck_task_operations_total{op="delete"} 1`) {
		t.Error("expected delete op count 1")
	}
}

func TestCollector_RecordHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordRequestLatency(150 * time.Millisecond)

	body := scrape(t, reg)

	if !strings.Contains(body, `taskdeck_http_status_total{status_code="200"} 2`) {
		t.Error("expected status 200 count 2")
	}
	if !strings.Contains(body, `taskdeck_http_status_total{status_code="401"} 1`) {
		t.Error("expected status 401 count 1")
	}
	if !strings.Contains(body, "taskdeck_request_latency_seconds_count 1") {
		t.Error("expected latency observation count 1")
	}
}

func TestSetupMetricsRoute_OnlyMetricsPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	server := httptest.NewServer(SetupMetricsRoute(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/other")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
