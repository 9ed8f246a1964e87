package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mixelka/traceidx/pkg/models"
)

// itemRow mirrors the extracted_items table with enum labels as raw
// strings so reads can reject corrupt values explicitly.
type itemRow struct {
	ItemID          string    `db:"item_id"`
	Content         string    `db:"content"`
	SourceMessageID string    `db:"source_message_id"`
	SourceFilePath  string    `db:"source_file_path"`
	ItemType        string    `db:"item_type"`
	Priority        string    `db:"priority"`
	ConfidenceScore float64   `db:"confidence_score"`
	IndexStatus     string    `db:"index_status"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r itemRow) toItem() (*models.ExtractedItem, error) {
	itemType, err := models.ParseItemType(r.ItemType)
	if err != nil {
		return nil, fmt.Errorf("corrupt item row %q: %w", r.ItemID, err)
	}
	priority, err := models.ParsePriority(r.Priority)
	if err != nil {
		return nil, fmt.Errorf("corrupt item row %q: %w", r.ItemID, err)
	}
	status, err := models.ParseIndexStatus(r.IndexStatus)
	if err != nil {
		return nil, fmt.Errorf("corrupt item row %q: %w", r.ItemID, err)
	}

	return &models.ExtractedItem{
		ItemID:          r.ItemID,
		Content:         r.Content,
		SourceMessageID: r.SourceMessageID,
		SourceFilePath:  r.SourceFilePath,
		ItemType:        itemType,
		Priority:        priority,
		ConfidenceScore: r.ConfidenceScore,
		IndexStatus:     status,
		CreatedAt:       r.CreatedAt.UTC(),
	}, nil
}

// SaveItem upserts an extracted item by its ID. The owning source
// message must already be persisted; a missing parent surfaces as
// ErrMissingParent, not a silent queue or retry.
func (db *DB) SaveItem(ctx context.Context, item *models.ExtractedItem) error {
	query := `
		INSERT OR REPLACE INTO extracted_items (item_id, content, source_message_id, source_file_path, item_type, priority, confidence_score, index_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		item.ItemID,
		item.Content,
		item.SourceMessageID,
		item.SourceFilePath,
		string(item.ItemType),
		string(item.Priority),
		item.ConfidenceScore,
		string(item.IndexStatus),
		item.CreatedAt,
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return fmt.Errorf("%w: (%s, %s)", ErrMissingParent, item.SourceMessageID, item.SourceFilePath)
		}
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// GetItem returns the item with the given ID.
func (db *DB) GetItem(ctx context.Context, itemID string) (*models.ExtractedItem, error) {
	var row itemRow
	query := `SELECT * FROM extracted_items WHERE item_id = ?`
	err := db.GetContext(ctx, &row, query, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return row.toItem()
}

// FindItemsBySource returns all items attributed to one source message.
func (db *DB) FindItemsBySource(ctx context.Context, key models.MessageKey) ([]*models.ExtractedItem, error) {
	var rows []itemRow
	query := `
		SELECT * FROM extracted_items
		WHERE source_message_id = ? AND source_file_path = ?
		ORDER BY created_at
	`
	if err := db.SelectContext(ctx, &rows, query, key.MessageID, key.FilePath); err != nil {
		return nil, fmt.Errorf("failed to find items by source: %w", err)
	}
	return rowsToItems(rows)
}

// FindAnomalousItems returns every item whose index status is anomaly,
// for downstream review tooling.
func (db *DB) FindAnomalousItems(ctx context.Context) ([]*models.ExtractedItem, error) {
	var rows []itemRow
	query := `SELECT * FROM extracted_items WHERE index_status = ? ORDER BY created_at`
	if err := db.SelectContext(ctx, &rows, query, string(models.StatusAnomaly)); err != nil {
		return nil, fmt.Errorf("failed to find anomalous items: %w", err)
	}
	return rowsToItems(rows)
}

// ListItemsByCreation returns every item ordered by creation time.
func (db *DB) ListItemsByCreation(ctx context.Context) ([]*models.ExtractedItem, error) {
	var rows []itemRow
	query := `SELECT * FROM extracted_items ORDER BY created_at`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return rowsToItems(rows)
}

func rowsToItems(rows []itemRow) ([]*models.ExtractedItem, error) {
	items := make([]*models.ExtractedItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
