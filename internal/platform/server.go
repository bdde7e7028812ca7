package platform

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goccy/go-json"

	"relaybot/internal/engine"
	"relaybot/internal/metrics"
)

// Server exposes the webhook endpoints over HTTP.
type Server struct {
	processor       *Processor
	replier         TelegramReplier
	metaVerifyToken string
	metrics         *metrics.Metrics
	logger          engine.Logger
	engine          *gin.Engine
}

// NewServer builds the router. metrics may be nil.
func NewServer(processor *Processor, replier TelegramReplier, metaVerifyToken string,
	m *metrics.Metrics, logger engine.Logger) *Server {

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		processor:       processor,
		replier:         replier,
		metaVerifyToken: metaVerifyToken,
		metrics:         m,
		logger:          logger,
		engine:          gin.New(),
	}
	s.engine.Use(gin.Recovery())

	s.engine.POST("/webhook/discord", s.instrument("discord", s.handleDiscord))
	s.engine.POST("/webhook/telegram", s.instrument("telegram", s.handleTelegram))
	s.engine.GET("/webhook/meta", s.handleMetaVerify)
	s.engine.POST("/webhook/meta", s.instrument("meta", s.handleMeta))
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(m.Handler()))

	return s
}

// Handler returns the HTTP handler for the router, for serving and tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("webhook server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) instrument(platform string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		handler(c)
		s.metrics.IncWebhook(platform, c.Writer.Status())
		s.metrics.ObserveWebhookDuration(platform, time.Since(start))
	}
}

// handleDiscord answers interactions synchronously: pings get a pong,
// commands and components get a channel message response.
func (s *Server) handleDiscord(c *gin.Context) {
	var interaction discordInteraction
	if err := json.NewDecoder(c.Request.Body).Decode(&interaction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if interaction.Type == discordInteractionPing {
		c.JSON(http.StatusOK, discordResponse{Type: discordResponsePong})
		return
	}

	ev, err := parseDiscordInteraction(&interaction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized interaction"})
		return
	}

	reply, err := s.processor.Process(c.Request.Context(), ev)
	if err != nil {
		s.logger.Error("discord event failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, discordResponse{
		Type: discordResponseMessage,
		Data: &discordResponseData{Content: reply.Text},
	})
}

// handleTelegram acknowledges the update with 200 regardless of pipeline
// outcome; the reply goes out through the bot client. Returning an error
// status would make Telegram redeliver the update.
func (s *Server) handleTelegram(c *gin.Context) {
	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	ev, chatID, err := parseTelegramUpdate(&update)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	reply, err := s.processor.Process(c.Request.Context(), ev)
	if err != nil {
		s.logger.Error("telegram event failed", "error", err)
		c.Status(http.StatusOK)
		return
	}

	if reply.Text != "" && chatID != 0 {
		if err := s.replier.Reply(c.Request.Context(), chatID, reply.Text); err != nil {
			s.logger.Warn("telegram reply failed", "chatId", strconv.FormatInt(chatID, 10), "error", err)
		}
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleMetaVerify(c *gin.Context) {
	challenge, ok := VerifyMetaSubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		s.metaVerifyToken,
	)
	if !ok {
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, challenge)
}

// handleMeta ingests all events in the delivery. Partial pipeline failures
// are logged; the delivery is still acknowledged so the feed does not
// stall on one bad event.
func (s *Server) handleMeta(c *gin.Context) {
	var payload metaPayload
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	events, err := parseMetaPayload(&payload)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized payload"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	for _, ev := range events {
		if _, err := s.processor.Process(c.Request.Context(), ev); err != nil {
			s.logger.Error("meta event failed", "platform", ev.Platform, "error", err)
		}
	}
	c.Status(http.StatusOK)
}
