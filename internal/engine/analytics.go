package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"relaybot/internal/model"
)

// AnalyticsService aggregates raw interaction records into per-platform
// statistics and emits performance reports. Aggregation is pure computation
// over scanned data.
type AnalyticsService struct {
	records  RecordStore
	notifier Notifier
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewAnalyticsService creates an AnalyticsService with the provided
// dependencies.
func NewAnalyticsService(records RecordStore, notifier Notifier, logger Logger, clock Clock, idgen IDGenerator) *AnalyticsService {
	return &AnalyticsService{
		records:  records,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// GenerateReport aggregates the trailing window of interactions for the
// given period, persists the result as a record of type "report", and
// emits a performance report notification. The persisted report is never
// updated after creation.
func (s *AnalyticsService) GenerateReport(ctx context.Context, period model.ReportPeriod) (*model.WeeklyReport, error) {
	now := s.clock.Now().UTC()
	since := now.Add(-period.Window())

	records, err := s.records.QueryInteractionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}

	report := Aggregate(records, period, now)

	rec := &model.InteractionRecord{
		ID:        s.idgen.New(),
		UserID:    "system",
		Platform:  model.PlatformDiscord,
		Type:      model.TypeReport,
		Timestamp: now.Format(time.RFC3339),
		Content: map[string]any{
			"period":            string(report.Period),
			"totalInteractions": report.TotalInteractions,
		},
	}
	if err := s.records.PutInteraction(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}

	s.notifier.SendPerformanceReport(ctx, Performance(records))
	s.logger.Info("report generated", "period", period, "interactions", report.TotalInteractions)
	return report, nil
}

// Aggregate computes per-platform statistics over records. Records of type
// "report" are bookkeeping, not user activity, and are excluded.
func Aggregate(records []model.InteractionRecord, period model.ReportPeriod, now time.Time) *model.WeeklyReport {
	stats := make(map[model.Platform]model.PlatformStats)
	users := make(map[model.Platform]map[string]struct{})
	total := 0

	for _, rec := range records {
		if rec.Type == model.TypeReport {
			continue
		}
		total++

		ps := stats[rec.Platform]
		ps.TotalInteractions++
		switch rec.Type {
		case model.TypeMessage:
			ps.MessageCount++
		case model.TypeCommand:
			ps.CommandCount++
		}
		stats[rec.Platform] = ps

		if users[rec.Platform] == nil {
			users[rec.Platform] = make(map[string]struct{})
		}
		users[rec.Platform][rec.UserID] = struct{}{}
	}

	// Engagement rate is the average number of interactions per unique
	// user on the platform.
	for platform, ps := range stats {
		ps.UniqueUsers = len(users[platform])
		if ps.UniqueUsers > 0 {
			ps.EngagementRate = float64(ps.TotalInteractions) / float64(ps.UniqueUsers)
		}
		stats[platform] = ps
	}

	return &model.WeeklyReport{
		Timestamp:         now.Format(time.RFC3339),
		Period:            period,
		PlatformStats:     stats,
		TotalInteractions: total,
	}
}

// Performance computes response-time and error-rate statistics from record
// metadata. Records without a responseTimeMs entry contribute only to the
// error/success rates.
func Performance(records []model.InteractionRecord) PerformanceReport {
	var times []float64
	errors := 0
	total := 0

	for _, rec := range records {
		if rec.Type == model.TypeReport {
			continue
		}
		total++

		if rec.Metadata == nil {
			continue
		}
		if v, ok := rec.Metadata["responseTimeMs"]; ok {
			if ms, ok := toFloat(v); ok {
				times = append(times, ms)
			}
		}
		if _, ok := rec.Metadata["error"]; ok {
			errors++
		}
	}

	report := PerformanceReport{}
	if total > 0 {
		report.ErrorRate = float64(errors) / float64(total)
		report.SuccessRate = 1 - report.ErrorRate
	}
	if len(times) > 0 {
		sum := 0.0
		for _, t := range times {
			sum += t
		}
		report.AvgResponseTime = sum / float64(len(times))

		sort.Float64s(times)
		idx := (len(times) * 95) / 100
		if idx >= len(times) {
			idx = len(times) - 1
		}
		report.P95ResponseTime = times[idx]
	}
	return report
}

// toFloat coerces JSON-decoded numeric metadata values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
