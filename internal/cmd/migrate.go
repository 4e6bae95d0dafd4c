package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylarkhq/assetferry/internal/config"
	"github.com/skylarkhq/assetferry/internal/observability"
	"github.com/skylarkhq/assetferry/pkg/catalog"
	"github.com/skylarkhq/assetferry/pkg/manifest"
	"github.com/skylarkhq/assetferry/pkg/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run a migration job from manifest",
	Long: `Run a migration job as defined in a YAML or JSON manifest file.

The manifest specifies the source catalog, destination bucket, candidate
filtering, transfer policy, and output configuration.

Example:
  assetferry migrate --job migration.yaml
  assetferry migrate --job migration.yaml --output results.jsonl
  assetferry migrate --job migration.yaml --ids-file failed.jsonl
  assetferry migrate --job migration.yaml --dry-run`,
	RunE: runMigrate,
}

var (
	migrateJobPath   string
	migrateOutput    string
	migrateQuiet     bool
	migrateDryRun    bool
	migratePlan      bool
	migrateForce     bool
	migrateWorkers   int
	migrateBatchSize int
	migratePrefix    string
	migrateStartDate string
	migrateIDsFile   string
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVarP(&migrateJobPath, "job", "j", "", "Path to job manifest (required)")
	migrateCmd.Flags().StringVarP(&migrateOutput, "output", "o", "", "Override output destination")
	migrateCmd.Flags().BoolVarP(&migrateQuiet, "quiet", "q", false, "Suppress progress records")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Validate manifest and show plan without executing")
	migrateCmd.Flags().BoolVar(&migratePlan, "plan", false, "Alias for --dry-run")
	migrateCmd.Flags().BoolVar(&migrateForce, "force-overwrite", false, "Transfer every asset, bypassing the existence check")
	migrateCmd.Flags().IntVar(&migrateWorkers, "concurrency", 0, "Override transfer worker count")
	migrateCmd.Flags().IntVar(&migrateBatchSize, "batch-size", 0, "Override catalog page size")
	migrateCmd.Flags().StringVar(&migratePrefix, "prefix", "", "Override public ID prefix filter")
	migrateCmd.Flags().StringVar(&migrateStartDate, "start-date", "", "Only migrate assets created on or after this date")
	migrateCmd.Flags().StringVar(&migrateIDsFile, "ids-file", "", "Migrate only the public IDs listed in this file (plain text or a previous run's JSONL)")

	_ = migrateCmd.MarkFlagRequired("job")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := manifest.Load(migrateJobPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", migrateJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	observability.CLILogger.Debug("Loaded manifest",
		zap.String("path", migrateJobPath),
		zap.String("cloud", m.Source.CloudName),
		zap.String("bucket", m.Target.Bucket))

	applyMigrateOverrides(m)

	if migratePlan || migrateDryRun {
		return showMigratePlan(m)
	}

	return executeMigrate(ctx, m)
}

// applyMigrateOverrides folds flag overrides into the loaded manifest.
func applyMigrateOverrides(m *manifest.Manifest) {
	if migrateOutput != "" {
		m.Output.Destination = migrateOutput
	}
	if migrateQuiet {
		enabled := false
		m.Output.Progress = &enabled
	}
	if migrateForce {
		m.Migration.ForceOverwrite = true
	}
	if migrateWorkers > 0 {
		m.Migration.Concurrency = migrateWorkers
	}
	if migrateBatchSize > 0 {
		m.Migration.BatchSize = migrateBatchSize
	}
	if migratePrefix != "" {
		m.Filters.Prefix = migratePrefix
	}
}

// showMigratePlan displays what would be migrated without executing.
func showMigratePlan(m *manifest.Manifest) error {
	fmt.Println("=== Migration Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Source cloud: %s (%s/%s)\n", m.Source.CloudName, m.Source.ResourceType, m.Source.DeliveryType)
	fmt.Printf("Target:       s3://%s/%s\n", m.Target.Bucket, m.Target.KeyPrefix)
	if m.Target.Region != "" {
		fmt.Printf("Region:       %s\n", m.Target.Region)
	}
	if m.Target.Endpoint != "" {
		fmt.Printf("Endpoint:     %s\n", m.Target.Endpoint)
	}
	fmt.Println()

	if m.Filters.Prefix != "" || m.Filters.StartAt != "" || len(m.Filters.PublicIDs) > 0 || migrateIDsFile != "" {
		fmt.Println("Filters:")
		if m.Filters.Prefix != "" {
			fmt.Printf("  Prefix:     %s\n", m.Filters.Prefix)
		}
		if m.Filters.StartAt != "" {
			fmt.Printf("  Start at:   %s\n", m.Filters.StartAt)
		}
		if len(m.Filters.PublicIDs) > 0 {
			fmt.Printf("  Public IDs: %d explicit\n", len(m.Filters.PublicIDs))
		}
		if migrateIDsFile != "" {
			fmt.Printf("  IDs file:   %s\n", migrateIDsFile)
		}
		fmt.Println()
	}

	if len(m.Match.Includes) > 0 || len(m.Match.Excludes) > 0 {
		fmt.Println("Patterns:")
		for _, p := range m.Match.Includes {
			fmt.Printf("  Include: %s\n", p)
		}
		for _, p := range m.Match.Excludes {
			fmt.Printf("  Exclude: %s\n", p)
		}
		fmt.Println()
	}

	fmt.Printf("Concurrency:  %d\n", m.Migration.Concurrency)
	fmt.Printf("Batch size:   %d\n", m.Migration.BatchSize)
	fmt.Printf("Policy:       skip_existing=%v force_overwrite=%v\n",
		m.Migration.SkipExistingEnabled(), m.Migration.ForceOverwrite)
	if m.Migration.RateLimit > 0 {
		fmt.Printf("Rate limit:   %.1f req/s\n", m.Migration.RateLimit)
	}
	fmt.Printf("Output:       %s\n", m.Output.Destination)
	fmt.Println()
	fmt.Println("Manifest validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeMigrate runs the actual migration job.
func executeMigrate(ctx context.Context, m *manifest.Manifest) error {
	runID := uuid.New().String()

	cfg, err := config.Load(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	src, err := buildSource(m, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	filters, err := buildFilters(m, migrateStartDate, migrateIDsFile)
	if err != nil {
		return err
	}

	matcher, err := buildMatcher(m)
	if err != nil {
		observability.CLILogger.Error("Failed to create matcher", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}

	st, err := buildStore(ctx, m)
	if err != nil {
		observability.CLILogger.Error("Failed to create destination store", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to destination", err)
	}
	defer func() { _ = st.Close() }()

	writer, cleanup, err := createWriter(m, runID)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	enum := catalog.NewEnumerator(src, filters, m.Migration.BatchSize, m.Migration.RateLimit)
	fetcher := migrate.NewHTTPFetcher(cfg.Fetch.Timeout)

	engineCfg := migrate.Config{
		Concurrency: m.Migration.Concurrency,
		KeyPrefix:   m.Target.KeyPrefix,
		Policy: migrate.Policy{
			SkipExisting:   m.Migration.SkipExistingEnabled(),
			ForceOverwrite: m.Migration.ForceOverwrite,
		},
		EmitProgress: m.Output.ProgressEnabled(),
	}

	engine := migrate.New(enum, st, fetcher, matcher, writer, engineCfg).
		WithLogger(observability.CLILogger)

	observability.CLILogger.Info("Starting migration",
		zap.String("run_id", runID),
		zap.String("cloud", m.Source.CloudName),
		zap.String("bucket", m.Target.Bucket),
		zap.Int("concurrency", engineCfg.Concurrency))

	summary, err := engine.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Migration cancelled",
				zap.String("run_id", runID),
				zap.Int64("processed", summary.Total))
			return exitError(foundry.ExitSignalInt, "Migration cancelled", err)
		}
		observability.CLILogger.Error("Migration failed",
			zap.String("run_id", runID),
			zap.Int64("processed", summary.Total),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Migration failed", err)
	}

	// Per-asset failures are itemized in the output records and do not
	// fail the process; the operator replays them with --ids-file.
	observability.CLILogger.Info("Migration completed",
		zap.String("run_id", runID),
		zap.Int64("total", summary.Total),
		zap.Int64("migrated", summary.Migrated),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("failed", summary.Failed),
		zap.Int64("bytes_transferred", summary.BytesTransferred),
		zap.Duration("duration", summary.Duration))

	return nil
}
