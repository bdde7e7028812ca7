package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"relaybot/internal/config"
	"relaybot/internal/engine"
)

func TestFormatBackupResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		got := formatBackupResult(engine.BackupResult{Success: true, Records: 42, Size: 1024})
		want := "Backup completed: 42 records, 1024 bytes"
		if got != want {
			t.Errorf("formatBackupResult() = %q, want %q", got, want)
		}
	})

	t.Run("failure", func(t *testing.T) {
		got := formatBackupResult(engine.BackupResult{Success: false, Err: "bucket unavailable"})
		if !strings.Contains(got, "FAILED") || !strings.Contains(got, "bucket unavailable") {
			t.Errorf("formatBackupResult() = %q, want failure with cause", got)
		}
	})
}

func TestFormatPerformanceReport(t *testing.T) {
	got := formatPerformanceReport(engine.PerformanceReport{
		AvgResponseTime: 120.5,
		P95ResponseTime: 300,
		ErrorRate:       0.05,
		SuccessRate:     0.95,
	})

	for _, want := range []string{"120.5ms", "300.0ms", "5.00%", "95.00%"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatPerformanceReport() = %q, missing %q", got, want)
		}
	}
}

func TestWebhookNotifier(t *testing.T) {
	t.Run("backup result posts an embed", func(t *testing.T) {
		var bodies []webhookBody
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			var body webhookBody
			if err := json.Unmarshal(data, &body); err != nil {
				t.Errorf("decoding webhook body: %v", err)
			}
			bodies = append(bodies, body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL, engine.NewNopLogger())
		n.SendBackupResult(context.Background(), engine.BackupResult{Success: true, Records: 3, Size: 99})

		if len(bodies) != 1 {
			t.Fatalf("posts = %d, want 1", len(bodies))
		}
		if len(bodies[0].Embeds) != 1 {
			t.Fatalf("embeds = %d, want 1", len(bodies[0].Embeds))
		}
		if !strings.Contains(bodies[0].Embeds[0].Description, "3 records") {
			t.Errorf("embed description = %q, want record count", bodies[0].Embeds[0].Description)
		}
	})

	t.Run("alert carries the severity color", func(t *testing.T) {
		var body webhookBody
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			json.Unmarshal(data, &body)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL, engine.NewNopLogger())
		n.SendAlert(context.Background(), "disk", "almost full", engine.SeverityWarning)

		if len(body.Embeds) != 1 || body.Embeds[0].Color != severityColors[engine.SeverityWarning] {
			t.Errorf("embed = %+v, want warning color", body.Embeds)
		}
	})

	t.Run("delivery failure is swallowed", func(t *testing.T) {
		n := NewWebhookNotifier("http://127.0.0.1:1/nope", engine.NewNopLogger())
		// Must not panic or block.
		n.SendAlert(context.Background(), "t", "m", engine.SeverityError)
		n.SendPerformanceReport(context.Background(), engine.PerformanceReport{})
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("empty and nop types build the nop notifier", func(t *testing.T) {
		for _, typ := range []string{"", "nop"} {
			n, err := NewFromConfig(config.NotifierConfig{Type: typ}, "", engine.NewNopLogger())
			if err != nil {
				t.Fatalf("NewFromConfig(%q) error = %v", typ, err)
			}
			if _, ok := n.(*engine.NopNotifier); !ok {
				t.Errorf("NewFromConfig(%q) = %T, want NopNotifier", typ, n)
			}
		}
	})

	t.Run("webhook type builds the webhook notifier", func(t *testing.T) {
		n, err := NewFromConfig(config.NotifierConfig{Type: "webhook", WebhookURL: "http://example.test/hook"},
			"", engine.NewNopLogger())
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		if _, ok := n.(*WebhookNotifier); !ok {
			t.Errorf("NewFromConfig() = %T, want WebhookNotifier", n)
		}
	})

	t.Run("telegram without token is a config error", func(t *testing.T) {
		_, err := NewFromConfig(config.NotifierConfig{Type: "telegram", TelegramChatID: 1}, "", engine.NewNopLogger())
		if err == nil {
			t.Error("NewFromConfig() without token: error = nil, want error")
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := NewFromConfig(config.NotifierConfig{Type: "carrier-pigeon"}, "", engine.NewNopLogger())
		if err == nil {
			t.Error("NewFromConfig() with unknown type: error = nil, want error")
		}
	})
}
