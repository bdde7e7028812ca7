package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"relaybot/internal/engine"
	"relaybot/internal/metrics"
	"relaybot/internal/model"
	"relaybot/internal/moderation"
	"relaybot/internal/ratelimit"
	"relaybot/internal/testutil"
)

type captureReplier struct {
	chatIDs []int64
	texts   []string
}

func (r *captureReplier) Reply(_ context.Context, chatID int64, text string) error {
	r.chatIDs = append(r.chatIDs, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func newTestServer(t *testing.T) (*Server, engine.RecordStore, *captureReplier) {
	t.Helper()
	records := testutil.NewTestRecordStore()
	clock := testutil.FixedClock()
	processor := NewProcessor(records, moderation.New(nil), ratelimit.New(clock), nil,
		engine.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	replier := &captureReplier{}
	server := NewServer(processor, replier, "verify-secret", metrics.New(), engine.NewNopLogger())
	return server, records, replier
}

func postJSON(t *testing.T, server *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Discord(t *testing.T) {
	t.Run("ping gets pong", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		rec := postJSON(t, server, "/webhook/discord", `{"type":1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp discordResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Type != discordResponsePong {
			t.Errorf("response type = %d, want pong", resp.Type)
		}
	})

	t.Run("command gets synchronous message response", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		body := `{"type":2,"channel_id":"c1","member":{"user":{"id":"u1"}},"data":{"name":"ping"}}`
		rec := postJSON(t, server, "/webhook/discord", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp discordResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Type != discordResponseMessage || resp.Data == nil || resp.Data.Content != "pong" {
			t.Errorf("response = %+v, want message response with pong", resp)
		}

		all, err := records.ScanInteractions(context.Background())
		if err != nil {
			t.Fatalf("ScanInteractions() error = %v", err)
		}
		if len(all) != 1 || all[0].Type != model.TypeCommand {
			t.Errorf("persisted records = %+v, want one command", all)
		}
	})

	t.Run("component gets postback handling", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		body := `{"type":3,"member":{"user":{"id":"u1"}},"data":{"custom_id":"open-ticket"}}`
		rec := postJSON(t, server, "/webhook/discord", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		all, _ := records.ScanInteractions(context.Background())
		if len(all) != 1 || all[0].Type != model.TypePostback {
			t.Errorf("persisted records = %+v, want one postback", all)
		}
		if all[0].Content["payload"] != "open-ticket" {
			t.Errorf("payload = %v, want open-ticket", all[0].Content["payload"])
		}
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		server, _, _ := newTestServer(t)
		rec := postJSON(t, server, "/webhook/discord", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_Telegram(t *testing.T) {
	t.Run("message is persisted and replied to", func(t *testing.T) {
		server, records, replier := newTestServer(t)

		body := `{"update_id":1,"message":{"message_id":10,"from":{"id":42},"chat":{"id":42},"text":"hello world"}}`
		rec := postJSON(t, server, "/webhook/telegram", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		all, _ := records.ScanInteractions(context.Background())
		if len(all) != 1 || all[0].Platform != model.PlatformTelegram {
			t.Fatalf("persisted records = %+v, want one telegram record", all)
		}
		if len(replier.chatIDs) != 1 || replier.chatIDs[0] != 42 {
			t.Errorf("replies = %+v, want one to chat 42", replier.chatIDs)
		}
	})

	t.Run("slash command is recorded as a command", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		body := `{"update_id":2,"message":{"message_id":11,"from":{"id":42},"chat":{"id":42},"text":"/help now"}}`
		postJSON(t, server, "/webhook/telegram", body)

		all, _ := records.ScanInteractions(context.Background())
		if len(all) != 1 || all[0].Type != model.TypeCommand {
			t.Fatalf("persisted records = %+v, want one command", all)
		}
		if all[0].Content["command"] != "help" {
			t.Errorf("command = %v, want help", all[0].Content["command"])
		}
	})

	t.Run("update without message is acknowledged", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		rec := postJSON(t, server, "/webhook/telegram", `{"update_id":3}`)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if got, _ := records.ScanInteractions(context.Background()); len(got) != 0 {
			t.Errorf("persisted records = %d, want 0", len(got))
		}
	})
}

func TestServer_Meta(t *testing.T) {
	t.Run("verification echoes the challenge", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet,
			"/webhook/meta?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "1158201444" {
			t.Errorf("body = %q, want the challenge", rec.Body.String())
		}
	})

	t.Run("verification with wrong token is forbidden", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet,
			"/webhook/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=x", nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("whatsapp message is persisted", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"15550001111","type":"text","text":{"body":"hola"}}]}}]}]}`
		rec := postJSON(t, server, "/webhook/meta", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		all, _ := records.ScanInteractions(context.Background())
		if len(all) != 1 || all[0].Platform != model.PlatformWhatsApp {
			t.Errorf("persisted records = %+v, want one whatsapp record", all)
		}
	})

	t.Run("facebook postback is persisted", func(t *testing.T) {
		server, records, _ := newTestServer(t)

		body := `{"object":"page","entry":[{"messaging":[{"sender":{"id":"fb-1"},"postback":{"payload":"GET_STARTED"}}]}]}`
		postJSON(t, server, "/webhook/meta", body)

		all, _ := records.ScanInteractions(context.Background())
		if len(all) != 1 || all[0].Type != model.TypePostback {
			t.Errorf("persisted records = %+v, want one postback", all)
		}
	})

	t.Run("unknown object is a bad request", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		rec := postJSON(t, server, "/webhook/meta", `{"object":"pager","entry":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_Healthz(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	server, _, _ := newTestServer(t)

	postJSON(t, server, "/webhook/discord", `{"type":1}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relaybot_webhooks_total") {
		t.Error("metrics output missing relaybot_webhooks_total")
	}
}
