package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/traceidx/pkg/models"
)

// messageRow mirrors the source_messages table. The storage location is
// persisted as a nullable column pair and folded back into the tagged
// union on read.
type messageRow struct {
	MessageID     string         `db:"message_id"`
	FilePath      string         `db:"file_path"`
	SenderName    string         `db:"sender_name"`
	SenderEmail   string         `db:"sender_email"`
	SentDate      time.Time      `db:"sent_date"`
	Subject       string         `db:"subject"`
	Format        string         `db:"format"`
	StorageOffset sql.NullInt64  `db:"storage_offset"`
	MaildirKey    sql.NullString `db:"maildir_key"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r messageRow) toMessage() (*models.SourceMessage, error) {
	format, err := models.ParseStorageFormat(r.Format)
	if err != nil {
		return nil, fmt.Errorf("corrupt message row %q: %w", r.MessageID, err)
	}

	var loc models.StorageLocation
	switch format {
	case models.FormatMbox:
		if !r.StorageOffset.Valid {
			return nil, fmt.Errorf("corrupt message row %q: mbox row has no storage_offset", r.MessageID)
		}
		loc = models.MboxLocation{Offset: r.StorageOffset.Int64}
	case models.FormatMaildir:
		if !r.MaildirKey.Valid {
			return nil, fmt.Errorf("corrupt message row %q: maildir row has no maildir_key", r.MessageID)
		}
		loc = models.MaildirLocation{Key: r.MaildirKey.String}
	}

	return &models.SourceMessage{
		MessageID:   r.MessageID,
		FilePath:    r.FilePath,
		SenderName:  r.SenderName,
		SenderEmail: r.SenderEmail,
		SentDate:    r.SentDate.UTC(),
		Subject:     r.Subject,
		Location:    loc,
		CreatedAt:   r.CreatedAt.UTC(),
	}, nil
}

func locationColumns(loc models.StorageLocation) (offset sql.NullInt64, key sql.NullString) {
	switch l := loc.(type) {
	case models.MboxLocation:
		offset = sql.NullInt64{Int64: l.Offset, Valid: true}
	case models.MaildirLocation:
		key = sql.NullString{String: l.Key, Valid: true}
	}
	return offset, key
}

// SaveMessage upserts a source message by its composite key. Reprocessing
// the same file replaces the row instead of erroring, and the in-place
// update keeps any already-attached items alive.
func (db *DB) SaveMessage(ctx context.Context, msg *models.SourceMessage) error {
	query := `
		INSERT INTO source_messages (message_id, file_path, sender_name, sender_email, sent_date, subject, format, storage_offset, maildir_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id, file_path) DO UPDATE SET
			sender_name = excluded.sender_name,
			sender_email = excluded.sender_email,
			sent_date = excluded.sent_date,
			subject = excluded.subject,
			format = excluded.format,
			storage_offset = excluded.storage_offset,
			maildir_key = excluded.maildir_key
	`
	offset, key := locationColumns(msg.Location)
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		msg.MessageID,
		msg.FilePath,
		msg.SenderName,
		msg.SenderEmail,
		msg.SentDate,
		msg.Subject,
		string(msg.Location.Format()),
		offset,
		key,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	return nil
}

// GetMessage returns the message with the given composite key.
func (db *DB) GetMessage(ctx context.Context, key models.MessageKey) (*models.SourceMessage, error) {
	var row messageRow
	query := `SELECT * FROM source_messages WHERE message_id = ? AND file_path = ?`
	err := db.GetContext(ctx, &row, query, key.MessageID, key.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return row.toMessage()
}

// GetMessageByID returns the message with the given Message-ID. When the
// same identifier occurs in multiple files the lexically first file wins.
func (db *DB) GetMessageByID(ctx context.Context, messageID string) (*models.SourceMessage, error) {
	var row messageRow
	query := `SELECT * FROM source_messages WHERE message_id = ? ORDER BY file_path LIMIT 1`
	err := db.GetContext(ctx, &row, query, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return row.toMessage()
}

// FindMessagesByPath returns all messages extracted from one file, in
// sent-date order. Multi-message mbox files yield several rows.
func (db *DB) FindMessagesByPath(ctx context.Context, filePath string) ([]*models.SourceMessage, error) {
	var rows []messageRow
	query := `SELECT * FROM source_messages WHERE file_path = ? ORDER BY sent_date`
	if err := db.SelectContext(ctx, &rows, query, filePath); err != nil {
		return nil, fmt.Errorf("failed to find messages by path: %w", err)
	}
	return rowsToMessages(rows)
}

// ListMessagesBySentDate returns every message ordered by sent date.
func (db *DB) ListMessagesBySentDate(ctx context.Context) ([]*models.SourceMessage, error) {
	var rows []messageRow
	query := `SELECT * FROM source_messages ORDER BY sent_date`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return rowsToMessages(rows)
}

// DeleteMessage removes a message; its extracted items go with it via
// the foreign key cascade.
func (db *DB) DeleteMessage(ctx context.Context, key models.MessageKey) error {
	query := `DELETE FROM source_messages WHERE message_id = ? AND file_path = ?`
	if _, err := db.ExecContext(ctx, query, key.MessageID, key.FilePath); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func rowsToMessages(rows []messageRow) ([]*models.SourceMessage, error) {
	msgs := make([]*models.SourceMessage, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toMessage()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
