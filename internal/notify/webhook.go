package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"relaybot/internal/engine"
)

// WebhookNotifier posts alerts and reports as JSON to an incoming-webhook
// URL. The body uses the Discord webhook shape ("content" plus optional
// "embeds"), which most chat webhooks accept. Fire-and-forget: delivery
// failures are logged and swallowed.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger engine.Logger
}

var _ engine.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, logger engine.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
}

type webhookBody struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

// Embed side-bar colors per severity.
var severityColors = map[engine.Severity]int{
	engine.SeverityInfo:    0x3498db,
	engine.SeverityWarning: 0xf1c40f,
	engine.SeverityError:   0xe74c3c,
}

func (n *WebhookNotifier) post(ctx context.Context, body webhookBody) {
	payload, err := json.Marshal(body)
	if err != nil {
		n.logger.Warn("notification encoding failed", "channel", "webhook", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("notification request failed", "channel", "webhook", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed", "channel", "webhook", "error", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification rejected", "channel", "webhook", "status", resp.StatusCode)
	}
}

func (n *WebhookNotifier) SendAlert(ctx context.Context, title, message string, severity engine.Severity) {
	n.post(ctx, webhookBody{
		Embeds: []webhookEmbed{{
			Title:       title,
			Description: message,
			Color:       severityColors[severity],
		}},
	})
}

func (n *WebhookNotifier) SendBackupResult(ctx context.Context, result engine.BackupResult) {
	severity := engine.SeverityInfo
	if !result.Success {
		severity = engine.SeverityError
	}
	n.post(ctx, webhookBody{
		Embeds: []webhookEmbed{{
			Title:       "Backup result",
			Description: formatBackupResult(result),
			Color:       severityColors[severity],
		}},
	})
}

func (n *WebhookNotifier) SendPerformanceReport(ctx context.Context, report engine.PerformanceReport) {
	n.post(ctx, webhookBody{Content: formatPerformanceReport(report)})
}
