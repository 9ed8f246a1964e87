package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mixelka/traceidx/pkg/models"
)

// anomalyRow mirrors the index_anomalies table.
type anomalyRow struct {
	AnomalyID      string         `db:"anomaly_id"`
	AnomalyType    string         `db:"anomaly_type"`
	EmailFilePath  string         `db:"email_file_path"`
	MessageIDValue sql.NullString `db:"message_id_value"`
	ErrorDetails   string         `db:"error_details"`
	Timestamp      time.Time      `db:"timestamp"`
	Resolved       bool           `db:"resolved"`
}

func (r anomalyRow) toAnomaly() (*models.IndexAnomaly, error) {
	anomalyType, err := models.ParseAnomalyType(r.AnomalyType)
	if err != nil {
		return nil, fmt.Errorf("corrupt anomaly row %q: %w", r.AnomalyID, err)
	}

	var value *string
	if r.MessageIDValue.Valid {
		v := r.MessageIDValue.String
		value = &v
	}

	return &models.IndexAnomaly{
		AnomalyID:      r.AnomalyID,
		AnomalyType:    anomalyType,
		EmailFilePath:  r.EmailFilePath,
		MessageIDValue: value,
		ErrorDetails:   r.ErrorDetails,
		Timestamp:      r.Timestamp.UTC(),
		Resolved:       r.Resolved,
	}, nil
}

// SaveAnomaly upserts an anomaly by its ID. Anomalies are created once;
// replace semantics keep the call idempotent under retry.
func (db *DB) SaveAnomaly(ctx context.Context, anomaly *models.IndexAnomaly) error {
	query := `
		INSERT OR REPLACE INTO index_anomalies (anomaly_id, anomaly_type, email_file_path, message_id_value, error_details, timestamp, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var value sql.NullString
	if anomaly.MessageIDValue != nil {
		value = sql.NullString{String: *anomaly.MessageIDValue, Valid: true}
	}
	_, err := db.ExecContext(ctx, query,
		anomaly.AnomalyID,
		string(anomaly.AnomalyType),
		anomaly.EmailFilePath,
		value,
		anomaly.ErrorDetails,
		anomaly.Timestamp,
		anomaly.Resolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save anomaly: %w", err)
	}
	return nil
}

// FindAnomaliesByPath returns all anomalies recorded against one file.
func (db *DB) FindAnomaliesByPath(ctx context.Context, filePath string) ([]*models.IndexAnomaly, error) {
	var rows []anomalyRow
	query := `SELECT * FROM index_anomalies WHERE email_file_path = ? ORDER BY timestamp`
	if err := db.SelectContext(ctx, &rows, query, filePath); err != nil {
		return nil, fmt.Errorf("failed to find anomalies by path: %w", err)
	}
	return rowsToAnomalies(rows)
}

// FindUnresolvedAnomalies returns every anomaly not yet resolved.
func (db *DB) FindUnresolvedAnomalies(ctx context.Context) ([]*models.IndexAnomaly, error) {
	var rows []anomalyRow
	query := `SELECT * FROM index_anomalies WHERE resolved = 0 ORDER BY timestamp`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to find unresolved anomalies: %w", err)
	}
	return rowsToAnomalies(rows)
}

func rowsToAnomalies(rows []anomalyRow) ([]*models.IndexAnomaly, error) {
	anomalies := make([]*models.IndexAnomaly, 0, len(rows))
	for _, row := range rows {
		anomaly, err := row.toAnomaly()
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, anomaly)
	}
	return anomalies, nil
}
