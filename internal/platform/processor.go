package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"relaybot/internal/engine"
	"relaybot/internal/metrics"
	"relaybot/internal/model"
	"relaybot/internal/moderation"
	"relaybot/internal/ratelimit"
)

// Processor runs inbound events through moderation and rate limiting,
// persists the survivors as interaction records, and produces the reply.
type Processor struct {
	records    engine.RecordStore
	classifier *moderation.Classifier
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     engine.Logger
	clock      engine.Clock
	idgen      engine.IDGenerator
}

// NewProcessor creates a Processor with the provided dependencies.
// metrics may be nil.
func NewProcessor(records engine.RecordStore, classifier *moderation.Classifier,
	limiter *ratelimit.Limiter, m *metrics.Metrics,
	logger engine.Logger, clock engine.Clock, idgen engine.IDGenerator) *Processor {

	return &Processor{
		records:    records,
		classifier: classifier,
		limiter:    limiter,
		metrics:    m,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
	}
}

// Process validates, gates, and persists one event. Gated events return a
// rejection reply and are never persisted; a store failure propagates so
// the caller can answer with a server error.
func (p *Processor) Process(ctx context.Context, ev Event) (Reply, error) {
	start := p.clock.Now()

	if err := ev.Validate(); err != nil {
		return Reply{}, err
	}

	if text := ev.text(); text != "" {
		if !p.classifier.IsProfanityFree(text) {
			p.metrics.IncGated("profanity")
			p.logger.Info("event gated", "reason", "profanity", "platform", ev.Platform, "userId", ev.UserID)
			return Reply{Text: "Your message was removed by moderation.", Rejected: true}, nil
		}
		if !p.classifier.IsNotSpam(text) {
			p.metrics.IncGated("spam")
			p.logger.Info("event gated", "reason", "spam", "platform", ev.Platform, "userId", ev.UserID)
			return Reply{Text: "Your message looks like spam and was not processed.", Rejected: true}, nil
		}
	}

	if !p.limiter.IsAllowed(ev.UserID, string(ev.Type)) {
		p.metrics.IncGated("rate_limit")
		p.logger.Info("event gated", "reason", "rate_limit", "platform", ev.Platform, "userId", ev.UserID)
		return Reply{Text: "You are sending requests too quickly. Please slow down.", Rejected: true}, nil
	}

	now := p.clock.Now().UTC()
	rec := &model.InteractionRecord{
		ID:        p.idgen.New(),
		UserID:    ev.UserID,
		Platform:  ev.Platform,
		Type:      ev.Type,
		Content:   ev.content(),
		Timestamp: now.Format(time.RFC3339),
		Metadata: map[string]any{
			"responseTimeMs": float64(p.clock.Now().Sub(start)) / float64(time.Millisecond),
		},
	}
	if err := p.records.PutInteraction(ctx, rec); err != nil {
		return Reply{}, fmt.Errorf("persisting interaction: %w", err)
	}

	p.logger.Debug("event recorded", "id", rec.ID, "platform", ev.Platform, "type", ev.Type)
	return Reply{Text: p.replyText(ev)}, nil
}

func (e *Event) text() string {
	switch e.Type {
	case model.TypeMessage, model.TypeReaction:
		return e.Text
	case model.TypeCommand:
		return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	}
	return ""
}

func (e *Event) content() map[string]any {
	content := map[string]any{}
	switch e.Type {
	case model.TypeMessage, model.TypeReaction:
		content["text"] = e.Text
	case model.TypeCommand:
		content["command"] = e.Command
		if len(e.Args) > 0 {
			content["args"] = strings.Join(e.Args, " ")
		}
	case model.TypePostback:
		content["payload"] = e.Payload
	}
	if e.ChatID != "" {
		content["chatId"] = e.ChatID
	}
	return content
}

func (p *Processor) replyText(ev Event) string {
	switch ev.Type {
	case model.TypeCommand:
		switch ev.Command {
		case "help":
			return "Available commands: /help, /ping, /stats"
		case "ping":
			return "pong"
		default:
			return fmt.Sprintf("Command %q received.", ev.Command)
		}
	case model.TypePostback:
		return "Got it."
	default:
		return "Message received."
	}
}
