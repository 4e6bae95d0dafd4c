// Package cmd implements the assetferry command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skylarkhq/assetferry/internal/observability"
)

// versionInfo holds build-time version metadata, populated via
// SetVersionInfo from main's ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version template.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "assetferry",
	Short: "Migrate media assets from a Cloudinary catalog to object storage",
	Long: `assetferry migrates media assets from a Cloudinary-style catalog to
an S3-compatible object store, and verifies the result.

Runs are driven by a job manifest (YAML or JSON) describing the source
catalog, destination bucket, candidate filters, and transfer policy.
Credentials come from the environment, never from the manifest.

Output is JSONL on stdout (or a file), one typed record per asset, so a
failed list can be replayed as the input of a follow-up run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = versionInfo.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"assetferry {{.Version}} (commit %s, built %s)\n",
		versionInfo.Commit, versionInfo.BuildDate))

	setDefaults()
}

// setDefaults registers global viper defaults shared by all commands.
func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("migration.concurrency", 10)
	viper.SetDefault("migration.batch_size", 100)
	viper.SetDefault("migration.skip_existing", true)
	viper.SetDefault("output.destination", "stdout")
	viper.SetDefault("output.progress", true)
}

// exitCodeError carries a process exit code alongside the wrapped error.
type exitCodeError struct {
	code    int
	message string
	err     error
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// exitError creates an error that causes the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, message: message, err: err}
}

// Execute runs the root command and returns the process exit code.
//
// SIGINT and SIGTERM cancel the run context; in-flight batches resolve
// and the partial summary flushes before the process exits.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.CLILogger.Error("Command failed", zap.Error(err))

		var ec *exitCodeError
		if errors.As(err, &ec) {
			return ec.code
		}
		return 1
	}
	return 0
}
