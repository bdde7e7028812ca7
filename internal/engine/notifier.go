package engine

import "context"

// Severity grades an alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// BackupResult summarizes one backup run for the notification channel.
type BackupResult struct {
	Success bool
	Size    int64
	Records int
	Err     string
}

// PerformanceReport carries aggregate response statistics.
type PerformanceReport struct {
	AvgResponseTime float64
	P95ResponseTime float64
	ErrorRate       float64
	SuccessRate     float64
}

// Notifier emits structured alerts and reports to an external channel.
// All sends are fire-and-forget: implementations log delivery failures but
// never return errors that would fail the triggering operation.
type Notifier interface {
	SendAlert(ctx context.Context, title, message string, severity Severity)
	SendBackupResult(ctx context.Context, result BackupResult)
	SendPerformanceReport(ctx context.Context, report PerformanceReport)
}

// NopNotifier discards all notifications. Use in tests and when no
// notification channel is configured.
type NopNotifier struct{}

func NewNopNotifier() *NopNotifier { return &NopNotifier{} }

func (*NopNotifier) SendAlert(context.Context, string, string, Severity) {}
func (*NopNotifier) SendBackupResult(context.Context, BackupResult)      {}
func (*NopNotifier) SendPerformanceReport(context.Context, PerformanceReport) {
}
