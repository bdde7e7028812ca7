package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"relaybot/internal/app"
	"relaybot/internal/config"
	"relaybot/internal/model"
)

func main() {
	// A local .env is optional; the real environment always wins.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and environment and creates an App. The caller
// must defer a.Close(). operation identifies the CLI command being run
// (e.g. "Serve", "Backup").
func newApp(cmd *cobra.Command, operation string, needKey bool) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	env, err := config.ReadEnv()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	env.Apply(cfg)

	if needKey && env.EncryptionKeyHex == "" {
		key, err := promptForKey()
		if err != nil {
			return nil, err
		}
		env.EncryptionKeyHex = key
	}

	a, err := app.NewApp(cmd.Context(), cfg, env, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptForKey reads the encryption key from the terminal without echo.
// Non-interactive runs must set BACKUP_ENCRYPTION_KEY instead.
func promptForKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("BACKUP_ENCRYPTION_KEY is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Encryption key (hex): ")
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}

var rootCmd = &cobra.Command{
	Use:   "relaybot",
	Short: "Multi-platform bot backend with encrypted backups",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Instance ID:  %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Record Store: %s\n", cfg.RecordStore.Type)
		fmt.Printf("Object Store: %s (bucket %s)\n", cfg.ObjectStore.Type, cfg.ObjectStore.Bucket)
		fmt.Printf("Notifier:     %s\n", cfg.Notifier.Type)
		fmt.Printf("Server Addr:  %s\n", cfg.Server.Addr)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server with scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Serve", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create an encrypted backup of all interaction records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Backup", true)
		if err != nil {
			return err
		}
		defer a.Close()

		meta, err := a.Backup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup %s: %d record(s), %d bytes\n", meta.BackupID, meta.RecordCount, meta.Size)
		if meta.URL != "" {
			fmt.Printf("Download: %s\n", meta.URL)
		}
		return nil
	},
}

// backups command
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List stored backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListBackups", false)
		if err != nil {
			return err
		}
		defer a.Close()

		metas, err := a.ListBackups(cmd.Context())
		if err != nil {
			return err
		}

		if len(metas) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}

		for _, m := range metas {
			fmt.Printf("%s  %s  %-8s  %d record(s)  %d bytes\n",
				m.BackupID, m.Timestamp, m.Status, m.RecordCount, m.Size)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore BACKUP_ID",
	Short: "Restore interaction records from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Restore", true)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Restore(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %d record(s) from %s\n", n, args[0])
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		a, err := newApp(cmd, "Cleanup", true)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Cleanup(cmd.Context(), days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		fmt.Printf("Deleted %d backup(s)\n", result.DeletedCount)
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an engagement report",
	RunE: func(cmd *cobra.Command, args []string) error {
		daily, _ := cmd.Flags().GetBool("daily")
		period := model.PeriodWeekly
		if daily {
			period = model.PeriodDaily
		}

		a, err := newApp(cmd, "Report", false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Report(cmd.Context(), period)
		if err != nil {
			return fmt.Errorf("report failed: %w", err)
		}

		fmt.Printf("%s report at %s: %d interaction(s)\n", report.Period, report.Timestamp, report.TotalInteractions)
		for platform, stats := range report.PlatformStats {
			fmt.Printf("  %-10s %d interaction(s), %d user(s), engagement %.2f\n",
				platform, stats.TotalInteractions, stats.UniqueUsers, stats.EngagementRate)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
	cleanupCmd.Flags().IntP("days", "d", 0, "Retention window override in days")
	rootCmd.AddCommand(cleanupCmd)
	reportCmd.Flags().Bool("daily", false, "Aggregate the trailing day instead of the trailing week")
	rootCmd.AddCommand(reportCmd)
}
