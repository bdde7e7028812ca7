package notify

import (
	"fmt"

	"relaybot/internal/config"
	"relaybot/internal/engine"
)

// NewFromConfig creates a Notifier implementation based on the notifier
// config type. telegramToken comes from the environment, not the config
// file.
func NewFromConfig(cfg config.NotifierConfig, telegramToken string, logger engine.Logger) (engine.Notifier, error) {
	switch cfg.Type {
	case "", "nop":
		return engine.NewNopNotifier(), nil
	case "telegram":
		if telegramToken == "" {
			return nil, fmt.Errorf("telegram notifier requires TELEGRAM_BOT_TOKEN to be set")
		}
		if cfg.TelegramChatID == 0 {
			return nil, fmt.Errorf("telegram notifier requires telegram_chat_id to be set")
		}
		return NewTelegramNotifier(telegramToken, cfg.TelegramChatID, logger)
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook notifier requires webhook_url to be set")
		}
		return NewWebhookNotifier(cfg.WebhookURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
