package platform

import (
	"context"
	"testing"

	"relaybot/internal/engine"
	"relaybot/internal/model"
	"relaybot/internal/moderation"
	"relaybot/internal/ratelimit"
	"relaybot/internal/testutil"
)

func newTestProcessor(t *testing.T) (*Processor, engine.RecordStore) {
	t.Helper()
	records := testutil.NewTestRecordStore()
	clock := testutil.FixedClock()
	p := NewProcessor(records, moderation.New(nil), ratelimit.New(clock), nil,
		engine.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	return p, records
}

func countRecords(t *testing.T, records engine.RecordStore) int {
	t.Helper()
	all, err := records.ScanInteractions(context.Background())
	if err != nil {
		t.Fatalf("ScanInteractions() error = %v", err)
	}
	return len(all)
}

func TestProcessor_Process(t *testing.T) {
	t.Run("persists a clean message", func(t *testing.T) {
		p, records := newTestProcessor(t)

		reply, err := p.Process(context.Background(), Event{
			Platform: model.PlatformDiscord,
			UserID:   "u1",
			Type:     model.TypeMessage,
			Text:     "hello world",
		})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if reply.Rejected {
			t.Error("clean message was rejected")
		}
		if got := countRecords(t, records); got != 1 {
			t.Errorf("records persisted = %d, want 1", got)
		}

		all, _ := records.ScanInteractions(context.Background())
		rec := all[0]
		if rec.Content["text"] != "hello world" {
			t.Errorf("Content[text] = %v, want hello world", rec.Content["text"])
		}
		if _, ok := rec.Metadata["responseTimeMs"]; !ok {
			t.Error("record missing responseTimeMs metadata")
		}
	})

	t.Run("gates profanity without persisting", func(t *testing.T) {
		p, records := newTestProcessor(t)

		reply, err := p.Process(context.Background(), Event{
			Platform: model.PlatformTelegram,
			UserID:   "u1",
			Type:     model.TypeMessage,
			Text:     "what the hell",
		})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !reply.Rejected {
			t.Error("profane message was not rejected")
		}
		if got := countRecords(t, records); got != 0 {
			t.Errorf("records persisted = %d, want 0", got)
		}
	})

	t.Run("gates spam without persisting", func(t *testing.T) {
		p, records := newTestProcessor(t)

		reply, err := p.Process(context.Background(), Event{
			Platform: model.PlatformWhatsApp,
			UserID:   "u1",
			Type:     model.TypeMessage,
			Text:     "aaaaaaaaaa",
		})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !reply.Rejected {
			t.Error("spam message was not rejected")
		}
		if got := countRecords(t, records); got != 0 {
			t.Errorf("records persisted = %d, want 0", got)
		}
	})

	t.Run("rate limits the 31st message", func(t *testing.T) {
		p, records := newTestProcessor(t)

		ev := Event{
			Platform: model.PlatformDiscord,
			UserID:   "u1",
			Type:     model.TypeMessage,
			Text:     "hello there",
		}
		for i := 0; i < 30; i++ {
			reply, err := p.Process(context.Background(), ev)
			if err != nil {
				t.Fatalf("Process() #%d error = %v", i, err)
			}
			if reply.Rejected {
				t.Fatalf("Process() #%d rejected, want allowed", i)
			}
		}

		reply, err := p.Process(context.Background(), ev)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !reply.Rejected {
			t.Error("31st message in the window was not rejected")
		}
		if got := countRecords(t, records); got != 30 {
			t.Errorf("records persisted = %d, want 30", got)
		}
	})

	t.Run("commands get command replies", func(t *testing.T) {
		p, _ := newTestProcessor(t)

		reply, err := p.Process(context.Background(), Event{
			Platform: model.PlatformTelegram,
			UserID:   "u1",
			Type:     model.TypeCommand,
			Command:  "ping",
		})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if reply.Text != "pong" {
			t.Errorf("reply = %q, want pong", reply.Text)
		}
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		p, _ := newTestProcessor(t)

		_, err := p.Process(context.Background(), Event{
			Platform: "pager",
			UserID:   "u1",
			Type:     model.TypeMessage,
			Text:     "hi",
		})
		if err == nil {
			t.Fatal("Process() error = nil, want ErrUnknownEvent")
		}
	})
}
