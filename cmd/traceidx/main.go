package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mixelka/traceidx/internal/audit"
	"github.com/mixelka/traceidx/internal/config"
	"github.com/mixelka/traceidx/internal/database"
	"github.com/mixelka/traceidx/internal/indexer"
	"github.com/mixelka/traceidx/internal/validator"
	"github.com/mixelka/traceidx/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <metadata-feed.jsonl>\n", os.Args[0])
		os.Exit(2)
	}
	feedPath := os.Args[1]

	logger.Info("starting traceability indexer", "feed", feedPath)

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Create audit trail
	auditLog, err := audit.New(cfg.AuditLogPath)
	if err != nil {
		logger.Error("failed to create audit log", "error", err)
		os.Exit(1)
	}

	// Read the metadata feed produced by the parsing stage
	recs, err := readFeed(feedPath)
	if err != nil {
		logger.Error("failed to read metadata feed", "error", err)
		os.Exit(1)
	}
	logger.Info("metadata feed loaded", "records", len(recs))

	// Process the batch
	ix := indexer.New(indexer.Deps{
		Validator: validator.New(db),
		DB:        db,
		Audit:     auditLog,
		Logger:    logger,
	})

	report, err := ix.ProcessBatch(ctx, recs)
	if err != nil {
		logger.Error("batch aborted", "error", err)
		os.Exit(1)
	}

	logger.Info("batch completed",
		"indexed", report.Indexed,
		"failed", report.Failed,
		"total_anomalies", report.Summary.Total,
		"unresolved", report.Summary.Unresolved,
	)
	for anomalyType, count := range report.Summary.ByType {
		logger.Info("anomaly count", "type", string(anomalyType), "count", count)
	}

	// Export the audit trail
	if cfg.ExportEnabled() {
		exported, skipped, err := auditLog.Export(cfg.ExportPath)
		if err != nil {
			logger.Error("failed to export audit trail", "error", err)
			os.Exit(1)
		}
		if skipped > 0 {
			logger.Warn("corrupt audit records skipped during export", "skipped", skipped)
		}
		logger.Info("audit trail exported", "path", cfg.ExportPath, "records", exported)
	}
}

// readFeed decodes one MessageRecord per line from a JSONL file.
func readFeed(path string) ([]models.MessageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []models.MessageRecord
	dec := json.NewDecoder(f)
	for {
		var rec models.MessageRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("bad record %d: %w", len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
