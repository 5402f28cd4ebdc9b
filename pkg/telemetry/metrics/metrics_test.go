package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/warden/pkg/chat"
	"mercator-hq/warden/pkg/completion"
	"mercator-hq/warden/pkg/policy/engine"
)

var (
	_ engine.Recorder     = (*Collector)(nil)
	_ completion.Recorder = (*Collector)(nil)
	_ chat.Recorder       = (*Collector)(nil)
)

func testConfig() Config {
	return Config{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(Config{Enabled: true}, registry)

	if c.Registry() != registry {
		t.Error("collector registry not set")
	}
	if c.config.Namespace != "warden" {
		t.Errorf("namespace = %q, want warden", c.config.Namespace)
	}
	if len(c.config.DurationBuckets) == 0 {
		t.Error("expected default duration buckets")
	}
	if NewCollector(testConfig(), nil).Registry() == nil {
		t.Error("expected a private registry")
	}
}

func TestCollector_RecordPolicyDecision(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	tests := []struct {
		action string
		source string
		times  int
	}{
		{"deny", "pattern", 3},
		{"warn", "pattern", 1},
		{"allow", "fallback", 2},
		{"deny", "fallback", 1},
	}
	for _, tt := range tests {
		for i := 0; i < tt.times; i++ {
			c.RecordPolicyDecision(tt.action, tt.source, time.Millisecond)
		}
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.policy.decisionsTotal.WithLabelValues(tt.action, tt.source))
		if got != float64(tt.times) {
			t.Errorf("decisions{%s,%s} = %v, want %d", tt.action, tt.source, got, tt.times)
		}
	}
	if n := testutil.CollectAndCount(c.policy.decisionDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_RecordTurnAndHTTP(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordTurn("success", 2*time.Second)
	c.RecordTurn("success", time.Second)
	c.RecordTurn("rejected_inbound", time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/api/chat/", http.StatusOK, time.Second)
	c.RecordHTTPRequest(http.MethodPost, "/api/chat/", http.StatusConflict, time.Millisecond)

	if got := testutil.ToFloat64(c.requests.turnsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requests.turnsTotal.WithLabelValues("rejected_inbound")); got != 1 {
		t.Errorf("rejected turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requests.httpTotal.WithLabelValues("POST", "/api/chat/", "409")); got != 1 {
		t.Errorf("409 requests = %v, want 1", got)
	}
}

func TestCollector_CompletionAndHealth(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordCompletion("agent", "success", time.Second)
	c.RecordCompletion("classifier", "error", time.Second)
	c.UpdateProviderHealth("openai", true)

	if got := testutil.ToFloat64(c.providers.completionsTotal.WithLabelValues("classifier", "error")); got != 1 {
		t.Errorf("classifier errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.providers.health.WithLabelValues("openai")); got != 1 {
		t.Errorf("health = %v, want 1", got)
	}
	c.UpdateProviderHealth("openai", false)
	if got := testutil.ToFloat64(c.providers.health.WithLabelValues("openai")); got != 0 {
		t.Errorf("health = %v, want 0", got)
	}
}

func TestCollector_Notifications(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.RecordNotification("sent")
	c.RecordNotification("failed")
	c.RecordNotification("sent")

	if got := testutil.ToFloat64(c.policy.notificationsTotal.WithLabelValues("sent")); got != 2 {
		t.Errorf("sent = %v, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.RecordPolicyDecision("deny", "pattern", time.Millisecond)
	c.RecordTurn("success", time.Second)
	c.RecordCompletion("agent", "success", time.Second)
	c.RecordNotification("sent")
	c.UpdateProviderHealth("openai", true)
	c.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	if n := testutil.CollectAndCount(c.policy.decisionsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d series", n)
	}
	if n := testutil.CollectAndCount(c.providers.health); n != 0 {
		t.Errorf("disabled collector recorded %d health series", n)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(DefaultConfig(), nil)
	c.RecordPolicyDecision("warn", "pattern", time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `warden_policy_decisions_total{source="pattern",verdict="warn"} 1`) {
		t.Errorf("exposition missing policy decision:\n%s", body)
	}
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordTurn("success", time.Millisecond)
				c.RecordPolicyDecision("allow", "fallback", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(c.requests.turnsTotal.WithLabelValues("success")); got != 1000 {
		t.Errorf("turns = %v, want 1000", got)
	}
}
