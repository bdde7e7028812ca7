package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/engine"
	"relaybot/internal/model"
)

// TelegramReplier sends a reply back into a Telegram chat.
type TelegramReplier interface {
	Reply(ctx context.Context, chatID int64, text string) error
}

// BotReplier answers through the Telegram bot API.
type BotReplier struct {
	bot *tgbotapi.BotAPI
}

var _ TelegramReplier = (*BotReplier)(nil)

// NewBotReplier wraps an authorized bot client.
func NewBotReplier(bot *tgbotapi.BotAPI) *BotReplier {
	return &BotReplier{bot: bot}
}

func (r *BotReplier) Reply(_ context.Context, chatID int64, text string) error {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sending telegram reply: %w", err)
	}
	return nil
}

// NopReplier drops replies. Used when no bot token is configured.
type NopReplier struct{}

func (NopReplier) Reply(context.Context, int64, string) error { return nil }

// parseTelegramUpdate maps a bot API update to an Event. Messages starting
// with "/" are commands; callback queries are postbacks.
func parseTelegramUpdate(u *tgbotapi.Update) (Event, int64, error) {
	if u.CallbackQuery != nil {
		cb := u.CallbackQuery
		ev := Event{
			Platform: model.PlatformTelegram,
			UserID:   strconv.FormatInt(cb.From.ID, 10),
			Type:     model.TypePostback,
			Payload:  cb.Data,
		}
		var chatID int64
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
			ev.ChatID = strconv.FormatInt(chatID, 10)
		}
		if err := ev.Validate(); err != nil {
			return Event{}, 0, err
		}
		return ev, chatID, nil
	}

	if u.Message == nil || u.Message.From == nil {
		return Event{}, 0, fmt.Errorf("%w: telegram update without message", ErrUnknownEvent)
	}

	msg := u.Message
	ev := Event{
		Platform: model.PlatformTelegram,
		UserID:   strconv.FormatInt(msg.From.ID, 10),
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
	}

	if strings.HasPrefix(msg.Text, "/") {
		fields := strings.Fields(msg.Text)
		ev.Type = model.TypeCommand
		ev.Command = strings.TrimPrefix(fields[0], "/")
		// Group-chat commands carry a @botname suffix.
		if at := strings.IndexByte(ev.Command, '@'); at >= 0 {
			ev.Command = ev.Command[:at]
		}
		ev.Args = fields[1:]
	} else {
		ev.Type = model.TypeMessage
		ev.Text = msg.Text
	}

	if err := ev.Validate(); err != nil {
		return Event{}, 0, err
	}
	return ev, msg.Chat.ID, nil
}

// NewTelegramBot authorizes a bot client for replies. The logger records
// the authorized account.
func NewTelegramBot(token string, logger engine.Logger) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorizing telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized", "account", bot.Self.UserName)
	return bot, nil
}
