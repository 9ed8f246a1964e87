package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnomalyType classifies a traceability failure.
type AnomalyType string

const (
	AnomalyMissingMessageID   AnomalyType = "missing_message_id"
	AnomalyMalformedMessageID AnomalyType = "malformed_message_id"
	AnomalyDuplicateDetection AnomalyType = "duplicate_detection_failure"
	AnomalyFileNotFound       AnomalyType = "file_not_found"
)

// ParseAnomalyType maps a stored label back to an AnomalyType. Unknown
// labels are an error, not coerced to some existing category.
func ParseAnomalyType(s string) (AnomalyType, error) {
	switch AnomalyType(s) {
	case AnomalyMissingMessageID, AnomalyMalformedMessageID, AnomalyDuplicateDetection, AnomalyFileNotFound:
		return AnomalyType(s), nil
	}
	return "", fmt.Errorf("unknown anomaly type: %q", s)
}

// IndexAnomaly is a permanent record of a traceability failure.
// Anomalies are created once and never deleted; resolved may be flipped
// later by maintenance tooling through a full replace.
type IndexAnomaly struct {
	AnomalyID      string      `db:"anomaly_id"`
	AnomalyType    AnomalyType `db:"anomaly_type"`
	EmailFilePath  string      `db:"email_file_path"`
	MessageIDValue *string     `db:"message_id_value"`
	ErrorDetails   string      `db:"error_details"`
	Timestamp      time.Time   `db:"timestamp"`
	Resolved       bool        `db:"resolved"`
}

// NewIndexAnomaly builds an IndexAnomaly with a fresh anomaly ID. A
// missing_message_id anomaly cannot carry an identifier value, so any
// supplied value is cleared for that type.
func NewIndexAnomaly(anomalyType AnomalyType, emailFilePath string, messageIDValue *string, errorDetails string) *IndexAnomaly {
	if anomalyType == AnomalyMissingMessageID {
		messageIDValue = nil
	}

	return &IndexAnomaly{
		AnomalyID:      uuid.NewString(),
		AnomalyType:    anomalyType,
		EmailFilePath:  emailFilePath,
		MessageIDValue: messageIDValue,
		ErrorDetails:   errorDetails,
		Timestamp:      time.Now().UTC(),
		Resolved:       false,
	}
}
