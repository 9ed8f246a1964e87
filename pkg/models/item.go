package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConfidenceThreshold is the minimum extraction confidence for an item
// to be considered normally traceable. Anything below is flagged as an
// index anomaly regardless of what the extractor claims.
const ConfidenceThreshold = 0.6

// ItemType classifies an extracted item.
type ItemType string

const (
	ItemTask     ItemType = "task"
	ItemDeadline ItemType = "deadline"
	ItemAction   ItemType = "action_item"
	ItemOther    ItemType = "other"
)

// ParseItemType maps a stored label back to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTask, ItemDeadline, ItemAction, ItemOther:
		return ItemType(s), nil
	}
	return "", fmt.Errorf("unknown item type: %q", s)
}

// Priority is the urgency level of an extracted item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a stored label back to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority: %q", s)
}

// IndexStatus is the traceability status of an extracted item.
type IndexStatus string

const (
	StatusNormal  IndexStatus = "normal"
	StatusAnomaly IndexStatus = "anomaly"
)

// ParseIndexStatus maps a stored label back to an IndexStatus.
func ParseIndexStatus(s string) (IndexStatus, error) {
	switch IndexStatus(s) {
	case StatusNormal, StatusAnomaly:
		return IndexStatus(s), nil
	}
	return "", fmt.Errorf("unknown index status: %q", s)
}

// ExtractedItem is a task, deadline, or action item attributed to
// exactly one SourceMessage. Construct through NewExtractedItem; the
// index status is derived from the confidence score and cannot be set
// by callers.
type ExtractedItem struct {
	ItemID          string      `db:"item_id"`
	Content         string      `db:"content"`
	SourceMessageID string      `db:"source_message_id"`
	SourceFilePath  string      `db:"source_file_path"`
	ItemType        ItemType    `db:"item_type"`
	Priority        Priority    `db:"priority"`
	ConfidenceScore float64     `db:"confidence_score"`
	IndexStatus     IndexStatus `db:"index_status"`
	CreatedAt       time.Time   `db:"created_at"`
}

// NewExtractedItem validates and builds an ExtractedItem with a fresh
// item ID. The confidence score must be within [0.0, 1.0].
func NewExtractedItem(content string, source MessageKey, itemType ItemType, priority Priority, confidence float64) (*ExtractedItem, error) {
	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("confidence_score must be between 0.0 and 1.0, got %v", confidence)
	}

	status := StatusNormal
	if confidence < ConfidenceThreshold {
		status = StatusAnomaly
	}

	return &ExtractedItem{
		ItemID:          uuid.NewString(),
		Content:         content,
		SourceMessageID: source.MessageID,
		SourceFilePath:  source.FilePath,
		ItemType:        itemType,
		Priority:        priority,
		ConfidenceScore: confidence,
		IndexStatus:     status,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Source returns the composite key of the owning message.
func (i *ExtractedItem) Source() MessageKey {
	return MessageKey{MessageID: i.SourceMessageID, FilePath: i.SourceFilePath}
}
