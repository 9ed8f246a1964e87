// Package validator checks that each inbound message can be traced back
// to its source: the file must be readable and the Message-ID must be a
// usable index key. Failures are data, not errors; they become
// IndexAnomaly records and per-batch summary counts.
package validator

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mixelka/traceidx/internal/msgid"
	"github.com/mixelka/traceidx/pkg/models"
)

// messageIDPattern is the full RFC 5322-like check, stricter than
// normalization: it additionally requires a dotted domain with an
// alphabetic TLD of at least two characters.
var messageIDPattern = regexp.MustCompile(`^<[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}>$`)

// Result is the tri-state outcome of one validation check.
type Result struct {
	Valid       bool
	AnomalyType models.AnomalyType
	Normalized  string
	Details     string
	Recoverable bool
}

// AnomalyStore persists anomaly records and serves summary queries.
// *database.DB satisfies it.
type AnomalyStore interface {
	SaveAnomaly(ctx context.Context, anomaly *models.IndexAnomaly) error
	FindAnomaliesByPath(ctx context.Context, filePath string) ([]*models.IndexAnomaly, error)
	FindUnresolvedAnomalies(ctx context.Context) ([]*models.IndexAnomaly, error)
}

// Validator runs traceability checks and records anomalies. The store is
// optional; with none configured checks still run and RecordAnomaly
// still hands out ids, but nothing is persisted.
type Validator struct {
	store AnomalyStore
}

// New creates a validator. store may be nil for dry runs.
func New(store AnomalyStore) *Validator {
	return &Validator{store: store}
}

// CheckFile verifies that the path exists, is a regular file, and that
// at least one byte can be read from it. Any failure is a file_not_found
// anomaly; none of them are recoverable.
func (v *Validator) CheckFile(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{
			AnomalyType: models.AnomalyFileNotFound,
			Details:     fmt.Sprintf("Email file not found: %s", path),
		}
	}
	if !info.Mode().IsRegular() {
		return Result{
			AnomalyType: models.AnomalyFileNotFound,
			Details:     fmt.Sprintf("Path is not a file: %s", path),
		}
	}

	f, err := os.Open(path)
	if err != nil {
		details := fmt.Sprintf("Error reading file %s: %v", path, err)
		if os.IsPermission(err) {
			details = fmt.Sprintf("Permission denied reading file: %s", path)
		}
		return Result{
			AnomalyType: models.AnomalyFileNotFound,
			Details:     details,
		}
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil && info.Size() > 0 {
		return Result{
			AnomalyType: models.AnomalyFileNotFound,
			Details:     fmt.Sprintf("Error reading file %s: %v", path, err),
		}
	}

	return Result{Valid: true, Recoverable: true}
}

// CheckMessageID validates the presence and format of a raw Message-ID.
// An absent or blank value is missing_message_id; a value that fails
// normalization or the full pattern is malformed_message_id. On success
// Normalized carries the canonical bracketed form.
func (v *Validator) CheckMessageID(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{
			AnomalyType: models.AnomalyMissingMessageID,
			Details:     "Message-ID header is completely absent",
		}
	}

	normalized, err := msgid.Normalize(raw)
	if err != nil {
		return Result{
			AnomalyType: models.AnomalyMalformedMessageID,
			Details:     fmt.Sprintf("Message-ID format is invalid: %s", raw),
		}
	}

	if !messageIDPattern.MatchString(normalized) {
		return Result{
			AnomalyType: models.AnomalyMalformedMessageID,
			Details:     fmt.Sprintf("Message-ID does not match RFC 5322 format: %s", raw),
		}
	}

	return Result{Valid: true, Normalized: normalized, Recoverable: true}
}

// RecordAnomaly creates an IndexAnomaly and persists it when a store is
// configured. The fresh anomaly id is returned either way; audit trail
// recording is the caller's job.
func (v *Validator) RecordAnomaly(ctx context.Context, anomalyType models.AnomalyType, filePath string, messageIDValue *string, details string) (string, error) {
	anomaly := models.NewIndexAnomaly(anomalyType, filePath, messageIDValue, details)

	if v.store != nil {
		if err := v.store.SaveAnomaly(ctx, anomaly); err != nil {
			return "", fmt.Errorf("failed to record anomaly: %w", err)
		}
	}

	return anomaly.AnomalyID, nil
}
