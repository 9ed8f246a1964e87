package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StorageFormat identifies the on-disk layout of an email store.
type StorageFormat string

const (
	FormatMbox    StorageFormat = "mbox"
	FormatMaildir StorageFormat = "maildir"
)

// ParseStorageFormat maps a stored label back to a StorageFormat.
func ParseStorageFormat(s string) (StorageFormat, error) {
	switch StorageFormat(s) {
	case FormatMbox, FormatMaildir:
		return StorageFormat(s), nil
	}
	return "", fmt.Errorf("unknown storage format: %q", s)
}

// StorageLocation addresses one message inside its store. Exactly one
// concrete type exists per storage format, so a message can never carry
// both an mbox offset and a Maildir key.
type StorageLocation interface {
	Format() StorageFormat
}

// MboxLocation addresses a message by byte offset within an mbox file.
type MboxLocation struct {
	Offset int64
}

func (MboxLocation) Format() StorageFormat { return FormatMbox }

// MaildirLocation addresses a message by its filename key within a Maildir.
type MaildirLocation struct {
	Key string
}

func (MaildirLocation) Format() StorageFormat { return FormatMaildir }

// MessageKey is the composite identity of a SourceMessage. The same
// Message-ID may legitimately recur across distinct files (copies,
// forwards), so the file path is part of the key.
type MessageKey struct {
	MessageID string
	FilePath  string
}

// SourceMessage represents one email that passed index validation.
// Construct through NewSourceMessage.
type SourceMessage struct {
	MessageID   string
	FilePath    string
	SenderName  string
	SenderEmail string
	SentDate    time.Time
	Subject     string
	Location    StorageLocation
	CreatedAt   time.Time
}

// NewSourceMessage validates and builds a SourceMessage. The message ID
// must already be in canonical bracketed form, the sender email must be
// present, and the storage location must be set.
func NewSourceMessage(messageID, filePath, senderName, senderEmail string, sentDate time.Time, subject string, loc StorageLocation) (*SourceMessage, error) {
	if messageID == "" {
		return nil, errors.New("message_id is required")
	}
	if !strings.HasPrefix(messageID, "<") || !strings.HasSuffix(messageID, ">") {
		return nil, fmt.Errorf("message_id is not in bracketed form: %q", messageID)
	}
	if filePath == "" {
		return nil, errors.New("file_path is required")
	}
	if senderEmail == "" {
		return nil, errors.New("sender_email is required")
	}
	if loc == nil {
		return nil, errors.New("storage location is required")
	}

	return &SourceMessage{
		MessageID:   messageID,
		FilePath:    filePath,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		SentDate:    sentDate.UTC(),
		Subject:     subject,
		Location:    loc,
	}, nil
}

// Key returns the composite identity of the message.
func (m *SourceMessage) Key() MessageKey {
	return MessageKey{MessageID: m.MessageID, FilePath: m.FilePath}
}

// MessageRecord is the metadata record handed over by the parsing
// collaborator, one per message found in a store. MessageID is the raw
// header value and may be empty when the header was absent.
type MessageRecord struct {
	MessageID     string        `json:"message_id,omitempty"`
	SenderName    string        `json:"sender_name"`
	SenderEmail   string        `json:"sender_email"`
	SentDate      time.Time     `json:"sent_date"`
	Subject       string        `json:"subject"`
	FilePath      string        `json:"file_path"`
	Format        StorageFormat `json:"format"`
	StorageOffset *int64        `json:"storage_offset,omitempty"`
	MaildirKey    *string       `json:"maildir_key,omitempty"`
}

// Location folds the record's format-specific fields into a StorageLocation.
func (r MessageRecord) Location() (StorageLocation, error) {
	switch r.Format {
	case FormatMbox:
		if r.StorageOffset == nil {
			return nil, errors.New("storage_offset required for mbox format")
		}
		return MboxLocation{Offset: *r.StorageOffset}, nil
	case FormatMaildir:
		if r.MaildirKey == nil {
			return nil, errors.New("maildir_key required for maildir format")
		}
		return MaildirLocation{Key: *r.MaildirKey}, nil
	}
	return nil, fmt.Errorf("unknown storage format: %q", r.Format)
}
