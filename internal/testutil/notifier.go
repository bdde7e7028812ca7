package testutil

import (
	"context"
	"sync"

	"relaybot/internal/engine"
)

// Alert is one recorded SendAlert call.
type Alert struct {
	Title    string
	Message  string
	Severity engine.Severity
}

// CaptureNotifier records every notification for later assertions.
// Safe for concurrent use.
type CaptureNotifier struct {
	mu      sync.Mutex
	Alerts  []Alert
	Backups []engine.BackupResult
	Reports []engine.PerformanceReport
}

var _ engine.Notifier = (*CaptureNotifier)(nil)

func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) SendAlert(_ context.Context, title, message string, severity engine.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Alerts = append(n.Alerts, Alert{Title: title, Message: message, Severity: severity})
}

func (n *CaptureNotifier) SendBackupResult(_ context.Context, result engine.BackupResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Backups = append(n.Backups, result)
}

func (n *CaptureNotifier) SendPerformanceReport(_ context.Context, report engine.PerformanceReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reports = append(n.Reports, report)
}

// LastBackup returns the most recent backup result, or nil if none.
func (n *CaptureNotifier) LastBackup() *engine.BackupResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Backups) == 0 {
		return nil
	}
	r := n.Backups[len(n.Backups)-1]
	return &r
}
