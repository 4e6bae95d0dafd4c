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
	"github.com/skylarkhq/assetferry/pkg/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a completed migration against the source catalog",
	Long: `Re-enumerate the source catalog and probe the destination for every
asset's target key, comparing existence and size.

Verification is read-only and independent of any previous run: it uses
the same key derivation as migration, so the probes land exactly where
migrated content was written.

Example:
  assetferry verify --job migration.yaml
  assetferry verify --job migration.yaml --sample 1000
  assetferry verify --job migration.yaml --output report.jsonl`,
	RunE: runVerify,
}

var (
	verifyJobPath   string
	verifyOutput    string
	verifySample    int64
	verifyStartDate string
	verifyIDsFile   string
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyJobPath, "job", "j", "", "Path to job manifest (required)")
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "o", "", "Override report destination")
	verifyCmd.Flags().Int64Var(&verifySample, "sample", 0, "Check at most this many assets (0 = whole catalog)")
	verifyCmd.Flags().StringVar(&verifyStartDate, "start-date", "", "Only verify assets created on or after this date")
	verifyCmd.Flags().StringVar(&verifyIDsFile, "ids-file", "", "Verify only the public IDs listed in this file")

	_ = verifyCmd.MarkFlagRequired("job")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := manifest.Load(verifyJobPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", verifyJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	if verifyOutput != "" {
		m.Output.Destination = verifyOutput
	}
	if verifySample > 0 {
		m.Verify.Sample = verifySample
	}

	return executeVerify(ctx, m)
}

// executeVerify runs the actual verification pass.
func executeVerify(ctx context.Context, m *manifest.Manifest) error {
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

	filters, err := buildFilters(m, verifyStartDate, verifyIDsFile)
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

	v := verify.New(enum, st, matcher, writer, verify.Config{
		Concurrency: m.Migration.Concurrency,
		KeyPrefix:   m.Target.KeyPrefix,
		SampleLimit: m.Verify.Sample,
	}).WithLogger(observability.CLILogger)

	observability.CLILogger.Info("Starting verification",
		zap.String("run_id", runID),
		zap.String("cloud", m.Source.CloudName),
		zap.String("bucket", m.Target.Bucket))

	report, err := v.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Verification cancelled",
				zap.String("run_id", runID),
				zap.Int64("checked", report.Checked))
			return exitError(foundry.ExitSignalInt, "Verification cancelled", err)
		}
		observability.CLILogger.Error("Verification failed",
			zap.String("run_id", runID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Verification failed", err)
	}

	observability.CLILogger.Info("Verification completed",
		zap.String("run_id", runID),
		zap.Int64("checked", report.Checked),
		zap.Int64("verified", report.Verified),
		zap.Int64("missing", report.Missing),
		zap.Int64("size_mismatched", report.SizeMismatched),
		zap.Float64("success_rate", report.SuccessRate()),
		zap.Duration("duration", report.Duration))

	if !report.Clean() {
		// Plain error: generic non-zero exit, distinct from infrastructure
		// failures.
		return fmt.Errorf("verification found discrepancies: %d of %d assets failed", len(report.Discrepancies), report.Checked)
	}
	return nil
}
