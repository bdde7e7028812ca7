package model

import "time"

// Platform identifies the messaging platform an interaction arrived from.
type Platform string

const (
	PlatformDiscord   Platform = "discord"
	PlatformTelegram  Platform = "telegram"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformDiscord, PlatformTelegram, PlatformWhatsApp, PlatformFacebook, PlatformInstagram:
		return true
	}
	return false
}

// InteractionType classifies a single user action.
type InteractionType string

const (
	TypeMessage  InteractionType = "message"
	TypeCommand  InteractionType = "command"
	TypeReaction InteractionType = "reaction"
	TypeTicket   InteractionType = "ticket"
	TypePostback InteractionType = "postback"
	TypeReport   InteractionType = "report"
)

// InteractionRecord is one user action on one platform. Records are created
// by the platform adapters on every inbound webhook event and never mutated
// afterwards. (ID, Timestamp) uniquely identifies a record; Timestamp is
// assigned once at creation and doubles as the sort key.
type InteractionRecord struct {
	ID        string          `json:"id" dynamodbav:"id"`
	UserID    string          `json:"userId" dynamodbav:"userId"`
	Platform  Platform        `json:"platform" dynamodbav:"platform"`
	Type      InteractionType `json:"type" dynamodbav:"type"`
	Content   map[string]any  `json:"content" dynamodbav:"content"`
	Timestamp string          `json:"timestamp" dynamodbav:"timestamp"`
	Metadata  map[string]any  `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// Time parses the record timestamp. Records always carry RFC 3339 timestamps;
// a parse failure returns the zero time.
func (r *InteractionRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BackupStatus is the outcome recorded for one backup run.
type BackupStatus string

const (
	BackupSuccess BackupStatus = "success"
	BackupFailure BackupStatus = "failure"
)

// BackupMetadata describes one completed (or failed) backup run.
// BackupID is derived from the run timestamp and is the primary key.
// Size and RecordCount are only meaningful when Status is success.
type BackupMetadata struct {
	BackupID    string       `json:"backupId" dynamodbav:"backupId"`
	Timestamp   string       `json:"timestamp" dynamodbav:"timestamp"`
	Status      BackupStatus `json:"status" dynamodbav:"status"`
	RecordCount int          `json:"recordCount" dynamodbav:"recordCount"`
	Size        int64        `json:"size" dynamodbav:"size"`
	BucketName  string       `json:"bucketName" dynamodbav:"bucketName"`
	Path        string       `json:"path" dynamodbav:"path"`
	URL         string       `json:"url,omitempty" dynamodbav:"url,omitempty"`
}

// Time parses the metadata timestamp, returning the zero time on failure.
func (m *BackupMetadata) Time() time.Time {
	t, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ReportPeriod selects the aggregation window for a report run.
type ReportPeriod string

const (
	PeriodWeekly ReportPeriod = "weekly"
	PeriodDaily  ReportPeriod = "daily"
)

// Window returns the trailing duration covered by the period.
func (p ReportPeriod) Window() time.Duration {
	if p == PeriodDaily {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// PlatformStats holds aggregated interaction statistics for one platform.
type PlatformStats struct {
	TotalInteractions int     `json:"totalInteractions"`
	UniqueUsers       int     `json:"uniqueUsers"`
	MessageCount      int     `json:"messageCount"`
	CommandCount      int     `json:"commandCount"`
	EngagementRate    float64 `json:"engagementRate"`
}

// WeeklyReport is the aggregated statistics for one reporting run. It is
// computed from a trailing window of InteractionRecords, persisted as a
// record of type "report", and never updated after creation.
type WeeklyReport struct {
	Timestamp         string                     `json:"timestamp"`
	Period            ReportPeriod               `json:"period"`
	PlatformStats     map[Platform]PlatformStats `json:"platformStats"`
	TotalInteractions int                        `json:"totalInteractions"`
}
