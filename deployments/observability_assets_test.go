package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "grafana", "shoptalk_slo_dashboard.json")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "shoptalk_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	text := string(content)

	requiredAlerts := []string{
		"ShopTalkAskLatencyP95High",
		"ShopTalkLLMLatencyP95High",
		"ShopTalkQueryExecutionLatencyP95High",
		"ShopTalkAskFailureRatioHigh",
		"ShopTalkAskRejectionRatioHigh",
		"ShopTalkLLMErrorRatioHigh",
		"ShopTalkArchiveWriteFailures",
		"ShopTalkSchemaRefreshFailures",
		"ShopTalkHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredMetrics := []string{
		"shoptalk:slo_ask_latency_seconds_p95",
		"shoptalk:slo_llm_latency_seconds_p95",
		"shoptalk:slo_query_execution_latency_seconds_p95",
		"shoptalk:slo_ask_failure_ratio_15m",
		"shoptalk:slo_ask_rejection_ratio_15m",
		"shoptalk:slo_llm_error_ratio_15m",
		"shoptalk:slo_archive_failures_30m",
		"shoptalk:slo_schema_refresh_failures_30m",
		"shoptalk:slo_http_error_rate_5m",
	}
	for _, metricName := range requiredMetrics {
		matched, err := regexp.MatchString(regexp.QuoteMeta(metricName), text)
		if err != nil {
			t.Fatalf("regexp error for metric %q: %v", metricName, err)
		}
		if !matched {
			t.Fatalf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "prometheus-scrape.example.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scrape example: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "metrics_path: /v1/metrics") {
		t.Fatal("scrape example missing ShopTalk metrics path")
	}
	if !strings.Contains(text, "shoptalk_rules.yaml") {
		t.Fatal("scrape example missing shoptalk rule file reference")
	}
	if !strings.Contains(text, "shoptalk_recording_rules.yaml") {
		t.Fatal("scrape example missing shoptalk recording rule file reference")
	}
	if !strings.Contains(text, "job_name: shoptalk-api") {
		t.Fatal("scrape example missing shoptalk-api job")
	}
}

func TestPrometheusRecordingRulesContainExpectedRecords(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "shoptalk_recording_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read recording rules file: %v", err)
	}
	text := string(content)

	requiredRecords := []string{
		"shoptalk:slo_ask_latency_seconds_p95",
		"shoptalk:slo_llm_latency_seconds_p95",
		"shoptalk:slo_query_execution_latency_seconds_p95",
		"shoptalk:slo_ask_failure_ratio_15m",
		"shoptalk:slo_ask_rejection_ratio_15m",
		"shoptalk:slo_llm_error_ratio_15m",
		"shoptalk:slo_archive_failures_30m",
		"shoptalk:slo_archive_failures_24h",
		"shoptalk:slo_schema_refresh_failures_30m",
		"shoptalk:slo_schema_refresh_failures_24h",
		"shoptalk:slo_http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}
}

func TestAlertmanagerExampleContainsSeverityRouting(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "alertmanager", "alertmanager.example.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read alertmanager example: %v", err)
	}
	text := string(content)

	requiredTokens := []string{
		"receiver: shoptalk-default",
		"severity=\"critical\"",
		"severity=\"warning\"",
		"name: shoptalk-critical",
		"name: shoptalk-warning",
		"inhibit_rules:",
		"group_by: [alertname, service, severity]",
	}
	for _, token := range requiredTokens {
		if !strings.Contains(text, token) {
			t.Fatalf("alertmanager example missing token %q", token)
		}
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
