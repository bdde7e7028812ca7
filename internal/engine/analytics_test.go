package engine_test

import (
	"context"
	"math"
	"testing"
	"time"

	"relaybot/internal/engine"
	"relaybot/internal/model"
	"relaybot/internal/testutil"
)

func putRecord(t *testing.T, store engine.RecordStore, rec model.InteractionRecord) {
	t.Helper()
	if err := store.PutInteraction(context.Background(), &rec); err != nil {
		t.Fatalf("PutInteraction() error = %v", err)
	}
}

func TestAnalyticsService_GenerateReport(t *testing.T) {
	records := testutil.NewTestRecordStore()
	notifier := testutil.NewCaptureNotifier()
	clock := testutil.FixedClock()
	svc := engine.NewAnalyticsService(records, notifier, engine.NewNopLogger(), clock, testutil.NewStubIDGenerator())

	now := clock.Now().UTC()
	inWindow := now.Add(-24 * time.Hour).Format(time.RFC3339)
	outOfWindow := now.Add(-8 * 24 * time.Hour).Format(time.RFC3339)

	putRecord(t, records, model.InteractionRecord{
		ID: "a", UserID: "u1", Platform: model.PlatformDiscord,
		Type: model.TypeMessage, Content: map[string]any{}, Timestamp: inWindow,
	})
	putRecord(t, records, model.InteractionRecord{
		ID: "b", UserID: "u1", Platform: model.PlatformDiscord,
		Type: model.TypeCommand, Content: map[string]any{}, Timestamp: inWindow,
	})
	putRecord(t, records, model.InteractionRecord{
		ID: "c", UserID: "u2", Platform: model.PlatformTelegram,
		Type: model.TypeMessage, Content: map[string]any{}, Timestamp: inWindow,
	})
	// Older than the weekly window; must not be counted.
	putRecord(t, records, model.InteractionRecord{
		ID: "d", UserID: "u3", Platform: model.PlatformTelegram,
		Type: model.TypeMessage, Content: map[string]any{}, Timestamp: outOfWindow,
	})

	report, err := svc.GenerateReport(context.Background(), model.PeriodWeekly)
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	if report.TotalInteractions != 3 {
		t.Errorf("TotalInteractions = %d, want 3", report.TotalInteractions)
	}

	discord := report.PlatformStats[model.PlatformDiscord]
	if discord.TotalInteractions != 2 || discord.UniqueUsers != 1 {
		t.Errorf("discord stats = %+v, want 2 interactions from 1 user", discord)
	}
	if discord.MessageCount != 1 || discord.CommandCount != 1 {
		t.Errorf("discord counts = %+v, want 1 message and 1 command", discord)
	}
	if discord.EngagementRate != 2 {
		t.Errorf("discord EngagementRate = %v, want 2", discord.EngagementRate)
	}

	telegram := report.PlatformStats[model.PlatformTelegram]
	if telegram.TotalInteractions != 1 || telegram.UniqueUsers != 1 {
		t.Errorf("telegram stats = %+v, want 1 interaction from 1 user", telegram)
	}

	if len(notifier.Reports) != 1 {
		t.Errorf("performance reports sent = %d, want 1", len(notifier.Reports))
	}

	// The report itself is persisted as a record of type "report".
	all, err := records.ScanInteractions(context.Background())
	if err != nil {
		t.Fatalf("ScanInteractions() error = %v", err)
	}
	found := false
	for _, rec := range all {
		if rec.Type == model.TypeReport {
			found = true
		}
	}
	if !found {
		t.Error("no persisted record of type report")
	}
}

func TestAggregate_ExcludesReports(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []model.InteractionRecord{
		{ID: "a", UserID: "u1", Platform: model.PlatformDiscord, Type: model.TypeMessage},
		{ID: "r", UserID: "system", Platform: model.PlatformDiscord, Type: model.TypeReport},
	}

	report := engine.Aggregate(records, model.PeriodDaily, now)
	if report.TotalInteractions != 1 {
		t.Errorf("TotalInteractions = %d, want 1", report.TotalInteractions)
	}
}

func TestPerformance(t *testing.T) {
	records := []model.InteractionRecord{
		{ID: "a", Type: model.TypeMessage, Metadata: map[string]any{"responseTimeMs": 100.0}},
		{ID: "b", Type: model.TypeMessage, Metadata: map[string]any{"responseTimeMs": 200.0}},
		{ID: "c", Type: model.TypeMessage, Metadata: map[string]any{"responseTimeMs": 300.0, "error": "timeout"}},
		{ID: "d", Type: model.TypeMessage},
	}

	perf := engine.Performance(records)

	if math.Abs(perf.AvgResponseTime-200) > 1e-9 {
		t.Errorf("AvgResponseTime = %v, want 200", perf.AvgResponseTime)
	}
	if perf.P95ResponseTime != 300 {
		t.Errorf("P95ResponseTime = %v, want 300", perf.P95ResponseTime)
	}
	if math.Abs(perf.ErrorRate-0.25) > 1e-9 {
		t.Errorf("ErrorRate = %v, want 0.25", perf.ErrorRate)
	}
	if math.Abs(perf.SuccessRate-0.75) > 1e-9 {
		t.Errorf("SuccessRate = %v, want 0.75", perf.SuccessRate)
	}
}

func TestPerformance_Empty(t *testing.T) {
	perf := engine.Performance(nil)
	if perf.AvgResponseTime != 0 || perf.ErrorRate != 0 || perf.SuccessRate != 0 {
		t.Errorf("Performance(nil) = %+v, want zeros", perf)
	}
}
