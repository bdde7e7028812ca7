// Package app is the application layer between the CLI and the services.
// It constructs all dependencies from config plus environment, exposes
// high-level operations, and manages resource lifecycles on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/engine"
	"relaybot/internal/metrics"
	"relaybot/internal/model"
	"relaybot/internal/moderation"
	"relaybot/internal/notify"
	"relaybot/internal/objectstore"
	"relaybot/internal/platform"
	"relaybot/internal/ratelimit"
	"relaybot/internal/recordstore"
	"relaybot/internal/scheduler"
)

// App wires the stores, gates, and services together for one CLI run.
// The backup service is only available when BACKUP_ENCRYPTION_KEY is set;
// operations that need it fail with a ConfigError otherwise.
type App struct {
	cfg        *config.Config
	env        *config.Env
	records    engine.RecordStore
	objects    engine.ObjectStore
	notifier   engine.Notifier
	backups    *engine.BackupService
	analytics  *engine.AnalyticsService
	limiter    *ratelimit.Limiter
	classifier *moderation.Classifier
	metrics    *metrics.Metrics
	logger     engine.Logger
	logFile    *os.File
}

// NewApp creates a fully wired App from the given config and environment.
// operation identifies the CLI command being run (e.g. "Serve", "Backup").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, env *config.Env, operation string) (*App, error) {
	runID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	slogger, logFile, err := newLogger(cfg.LogDir, runID, cfg.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	records, err := recordstore.NewFromConfig(ctx, cfg.RecordStore, cfg.InstanceID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating record store: %w", err)
	}

	objects, err := objectstore.NewFromConfig(ctx, cfg.ObjectStore)
	if err != nil {
		records.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	notifier, err := notify.NewFromConfig(cfg.Notifier, env.TelegramBotToken, logger)
	if err != nil {
		records.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	clock := engine.RealClock{}
	idgen := engine.UUIDGenerator{}

	a := &App{
		cfg:        cfg,
		env:        env,
		records:    records,
		objects:    objects,
		notifier:   notifier,
		analytics:  engine.NewAnalyticsService(records, notifier, logger, clock, idgen),
		limiter:    ratelimit.New(clock),
		classifier: moderation.New(cfg.Moderation.DenyList),
		metrics:    metrics.New(),
		logger:     logger,
		logFile:    logFile,
	}

	key, err := env.EncryptionKey()
	if err != nil {
		a.Close()
		return nil, err
	}
	if key != nil {
		ttl, err := signedURLTTL(cfg.Backup.SignedURLTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		backups, err := engine.NewBackupService(records, objects, notifier, key,
			cfg.ObjectStore.Bucket, cfg.Backup.PathPrefix, ttl, cfg.Backup.RetentionDays,
			logger, clock)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.backups = backups
	}

	return a, nil
}

func signedURLTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(s)
	if err != nil {
		return 0, engine.NewConfigError("invalid signed_url_ttl %q: %v", s, err)
	}
	return ttl, nil
}

func (a *App) requireBackups() (*engine.BackupService, error) {
	if a.backups == nil {
		return nil, engine.NewConfigError("BACKUP_ENCRYPTION_KEY is not set")
	}
	return a.backups, nil
}

// Backup snapshots the record set into a new encrypted artifact.
func (a *App) Backup(ctx context.Context) (*model.BackupMetadata, error) {
	backups, err := a.requireBackups()
	if err != nil {
		return nil, err
	}
	return backups.PerformBackup(ctx)
}

// Restore decrypts the artifact for backupID and writes its records back
// into the record store. Existing records with the same key are
// overwritten in place. Returns the number of records restored.
func (a *App) Restore(ctx context.Context, backupID string) (int, error) {
	backups, err := a.requireBackups()
	if err != nil {
		return 0, err
	}

	records, err := backups.Restore(ctx, backupID)
	if err != nil {
		return 0, err
	}
	for i := range records {
		if err := a.records.PutInteraction(ctx, &records[i]); err != nil {
			return i, fmt.Errorf("writing restored record %s: %w", records[i].ID, err)
		}
	}
	return len(records), nil
}

// Cleanup deletes backups older than retentionDays. Zero means the
// configured retention window.
func (a *App) Cleanup(ctx context.Context, retentionDays int) (engine.CleanupResult, error) {
	backups, err := a.requireBackups()
	if err != nil {
		return engine.CleanupResult{}, err
	}
	return backups.CleanupOldBackups(ctx, retentionDays)
}

// Report aggregates the trailing window for the period and emits the
// performance notification.
func (a *App) Report(ctx context.Context, period model.ReportPeriod) (*model.WeeklyReport, error) {
	return a.analytics.GenerateReport(ctx, period)
}

// ListBackups returns the stored backup metadata rows.
func (a *App) ListBackups(ctx context.Context) ([]model.BackupMetadata, error) {
	return a.records.ListBackupMetadata(ctx)
}

// Serve runs the webhook server with the periodic jobs attached. It
// blocks until the listener fails. The backup service is required so
// scheduled backups cannot silently no-op.
func (a *App) Serve(ctx context.Context) error {
	backups, err := a.requireBackups()
	if err != nil {
		return err
	}

	if err := a.objects.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating object store: %w", err)
	}

	var replier platform.TelegramReplier = platform.NopReplier{}
	if a.env.TelegramBotToken != "" {
		bot, err := platform.NewTelegramBot(a.env.TelegramBotToken, a.logger)
		if err != nil {
			return err
		}
		replier = platform.NewBotReplier(bot)
	}

	sched, err := scheduler.New(backups, a.analytics, a.limiter,
		a.cfg.Schedule.Backup, a.cfg.Schedule.Report, a.logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	processor := platform.NewProcessor(a.records, a.classifier, a.limiter, a.metrics,
		a.logger, engine.RealClock{}, engine.UUIDGenerator{})
	server := platform.NewServer(processor, replier, a.cfg.Server.MetaVerifyToken,
		a.metrics, a.logger)

	return server.Run(a.cfg.Server.Addr)
}

// Close releases the record store and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.records.Close(); err != nil {
		firstErr = fmt.Errorf("closing record store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
