// Package observability provides the shared CLI logger.
//
// Structured records (per-asset outcomes, progress, summaries) go to the
// output writer; the logger carries operator-facing diagnostics and is
// kept strictly on stderr so JSONL output on stdout stays parseable.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for command execution.
//
// The level is controlled by ASSETFERRY_LOG_LEVEL (debug|info|warn|error).
// Default: info.
var CLILogger = newCLILogger(os.Getenv("ASSETFERRY_LOG_LEVEL"))

// newCLILogger builds a console logger on stderr at the given level.
func newCLILogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(strings.ToLower(level)); err == nil {
			lvl = parsed
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core)
}
