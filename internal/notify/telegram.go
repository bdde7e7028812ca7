package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/engine"
)

// TelegramNotifier delivers alerts and reports to a Telegram chat.
// Sends are fire-and-forget: delivery failures are logged and swallowed.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger engine.Logger
}

var _ engine.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier posting to the given chat.
func NewTelegramNotifier(token string, chatID int64, logger engine.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn("notification delivery failed", "channel", "telegram", "error", err)
	}
}

func (n *TelegramNotifier) SendAlert(_ context.Context, title, message string, severity engine.Severity) {
	n.send(fmt.Sprintf("[%s] %s\n%s", severity, title, message))
}

func (n *TelegramNotifier) SendBackupResult(_ context.Context, result engine.BackupResult) {
	n.send(formatBackupResult(result))
}

func (n *TelegramNotifier) SendPerformanceReport(_ context.Context, report engine.PerformanceReport) {
	n.send(formatPerformanceReport(report))
}

// formatBackupResult renders a backup outcome as a plain-text message.
func formatBackupResult(result engine.BackupResult) string {
	if result.Success {
		return fmt.Sprintf("Backup completed: %d records, %d bytes", result.Records, result.Size)
	}
	return fmt.Sprintf("Backup FAILED: %s", result.Err)
}

// formatPerformanceReport renders aggregate response statistics.
func formatPerformanceReport(report engine.PerformanceReport) string {
	return fmt.Sprintf(
		"Performance report\navg response: %.1fms\np95 response: %.1fms\nerror rate: %.2f%%\nsuccess rate: %.2f%%",
		report.AvgResponseTime, report.P95ResponseTime,
		report.ErrorRate*100, report.SuccessRate*100,
	)
}
