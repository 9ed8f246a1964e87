package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/traceidx/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "traceidx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestMessage(t *testing.T, messageID, filePath, subject string) *models.SourceMessage {
	t.Helper()

	sent := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg, err := models.NewSourceMessage(messageID, filePath, "Ada Lovelace", "ada@example.com", sent, subject, models.MboxLocation{Offset: 1024})
	require.NoError(t, err)
	return msg
}

func TestSaveMessageUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "first subject")
	require.NoError(t, db.SaveMessage(ctx, first))

	second := newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "second subject")
	require.NoError(t, db.SaveMessage(ctx, second))

	msgs, err := db.FindMessagesByPath(ctx, "/mail/inbox.mbox")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second subject", msgs[0].Subject)
}

func TestSameMessageIDInDistinctFiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveMessage(ctx, newTestMessage(t, "<ok@example.com>", "/mail/a.mbox", "original")))
	require.NoError(t, db.SaveMessage(ctx, newTestMessage(t, "<ok@example.com>", "/mail/b.mbox", "forwarded copy")))

	msg, err := db.GetMessage(ctx, models.MessageKey{MessageID: "<ok@example.com>", FilePath: "/mail/b.mbox"})
	require.NoError(t, err)
	assert.Equal(t, "forwarded copy", msg.Subject)

	all, err := db.ListMessagesBySentDate(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetMessageNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetMessage(context.Background(), models.MessageKey{MessageID: "<no@where.com>", FilePath: "/mail/x.mbox"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetMessageByID(context.Background(), "<no@where.com>")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageLocationRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sent := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg, err := models.NewSourceMessage("<md@example.com>", "/mail/Maildir", "Ada", "ada@example.com", sent, "maildir message", models.MaildirLocation{Key: "1697040000.M1P2.host"})
	require.NoError(t, err)
	require.NoError(t, db.SaveMessage(ctx, msg))

	got, err := db.GetMessage(ctx, msg.Key())
	require.NoError(t, err)
	assert.Equal(t, models.MaildirLocation{Key: "1697040000.M1P2.host"}, got.Location)
	assert.True(t, got.SentDate.Equal(sent))
}

func TestSaveItemRequiresParent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	orphanKey := models.MessageKey{MessageID: "<orphan@example.com>", FilePath: "/mail/void.mbox"}
	item, err := models.NewExtractedItem("reply to board", orphanKey, models.ItemTask, models.PriorityHigh, 0.9)
	require.NoError(t, err)

	err = db.SaveItem(ctx, item)
	assert.ErrorIs(t, err, ErrMissingParent)
}

func TestItemLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	msg := newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "tasks inside")
	require.NoError(t, db.SaveMessage(ctx, msg))

	confident, err := models.NewExtractedItem("send quarterly report", msg.Key(), models.ItemTask, models.PriorityHigh, 0.9)
	require.NoError(t, err)
	require.NoError(t, db.SaveItem(ctx, confident))

	shaky, err := models.NewExtractedItem("maybe a deadline on friday", msg.Key(), models.ItemDeadline, models.PriorityLow, 0.4)
	require.NoError(t, err)
	require.NoError(t, db.SaveItem(ctx, shaky))

	bySource, err := db.FindItemsBySource(ctx, msg.Key())
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	got, err := db.GetItem(ctx, confident.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNormal, got.IndexStatus)
	assert.Equal(t, msg.Key(), got.Source())

	anomalous, err := db.FindAnomalousItems(ctx)
	require.NoError(t, err)
	require.Len(t, anomalous, 1)
	assert.Equal(t, shaky.ItemID, anomalous[0].ItemID)

	// Replace-upsert by item id keeps one row
	confident.Content = "send quarterly report to the board"
	require.NoError(t, db.SaveItem(ctx, confident))
	all, err := db.ListItemsByCreation(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteMessageCascadesToItems(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	msg := newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "tasks inside")
	require.NoError(t, db.SaveMessage(ctx, msg))

	item, err := models.NewExtractedItem("send report", msg.Key(), models.ItemTask, models.PriorityMedium, 0.8)
	require.NoError(t, err)
	require.NoError(t, db.SaveItem(ctx, item))

	require.NoError(t, db.DeleteMessage(ctx, msg.Key()))

	items, err := db.FindItemsBySource(ctx, msg.Key())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = db.GetItem(ctx, item.ItemID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReindexingMessageKeepsItems(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	msg := newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "first pass")
	require.NoError(t, db.SaveMessage(ctx, msg))

	item, err := models.NewExtractedItem("send report", msg.Key(), models.ItemTask, models.PriorityMedium, 0.8)
	require.NoError(t, err)
	require.NoError(t, db.SaveItem(ctx, item))

	// Second pass over the same file must not wipe attached items
	require.NoError(t, db.SaveMessage(ctx, newTestMessage(t, "<ok@example.com>", "/mail/inbox.mbox", "second pass")))

	items, err := db.FindItemsBySource(ctx, msg.Key())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCorruptRowsSurfaceIntegrityErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t.Run("unknown item enum label", func(t *testing.T) {
		msg := newTestMessage(t, "<items@example.com>", "/mail/items.mbox", "tasks inside")
		require.NoError(t, db.SaveMessage(ctx, msg))

		item, err := models.NewExtractedItem("send report", msg.Key(), models.ItemTask, models.PriorityHigh, 0.9)
		require.NoError(t, err)
		require.NoError(t, db.SaveItem(ctx, item))

		_, err = db.ExecContext(ctx, `UPDATE extracted_items SET item_type = 'chore' WHERE item_id = ?`, item.ItemID)
		require.NoError(t, err)

		_, err = db.GetItem(ctx, item.ItemID)
		assert.ErrorContains(t, err, "corrupt item row")

		_, err = db.FindItemsBySource(ctx, msg.Key())
		assert.ErrorContains(t, err, "corrupt item row")
	})

	t.Run("mbox row without storage offset", func(t *testing.T) {
		msg := newTestMessage(t, "<mbox@example.com>", "/mail/mbox.mbox", "hello")
		require.NoError(t, db.SaveMessage(ctx, msg))

		_, err := db.ExecContext(ctx, `UPDATE source_messages SET storage_offset = NULL WHERE message_id = ?`, msg.MessageID)
		require.NoError(t, err)

		_, err = db.GetMessage(ctx, msg.Key())
		assert.ErrorContains(t, err, "corrupt message row")
	})

	t.Run("unknown storage format label", func(t *testing.T) {
		msg := newTestMessage(t, "<fmt@example.com>", "/mail/fmt.mbox", "hello")
		require.NoError(t, db.SaveMessage(ctx, msg))

		_, err := db.ExecContext(ctx, `UPDATE source_messages SET format = 'pst' WHERE message_id = ?`, msg.MessageID)
		require.NoError(t, err)

		_, err = db.GetMessage(ctx, msg.Key())
		assert.ErrorContains(t, err, "corrupt message row")
	})

	t.Run("unknown anomaly type label", func(t *testing.T) {
		anomaly := models.NewIndexAnomaly(models.AnomalyFileNotFound, "/mail/gone.mbox", nil, "missing")
		require.NoError(t, db.SaveAnomaly(ctx, anomaly))

		_, err := db.ExecContext(ctx, `UPDATE index_anomalies SET anomaly_type = 'solar_flare' WHERE anomaly_id = ?`, anomaly.AnomalyID)
		require.NoError(t, err)

		_, err = db.FindAnomaliesByPath(ctx, "/mail/gone.mbox")
		assert.ErrorContains(t, err, "corrupt anomaly row")

		_, err = db.FindUnresolvedAnomalies(ctx)
		assert.ErrorContains(t, err, "corrupt anomaly row")
	})
}

func TestAnomalyRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	value := "<weird@@example.com>"
	malformed := models.NewIndexAnomaly(models.AnomalyMalformedMessageID, "/mail/a.mbox", &value, "bad header")
	missing := models.NewIndexAnomaly(models.AnomalyMissingMessageID, "/mail/b.mbox", nil, "header absent")
	require.NoError(t, db.SaveAnomaly(ctx, malformed))
	require.NoError(t, db.SaveAnomaly(ctx, missing))

	// Replace-upsert under retry keeps one row per id
	require.NoError(t, db.SaveAnomaly(ctx, malformed))

	byPath, err := db.FindAnomaliesByPath(ctx, "/mail/a.mbox")
	require.NoError(t, err)
	require.Len(t, byPath, 1)
	assert.Equal(t, models.AnomalyMalformedMessageID, byPath[0].AnomalyType)
	require.NotNil(t, byPath[0].MessageIDValue)
	assert.Equal(t, value, *byPath[0].MessageIDValue)

	unresolved, err := db.FindUnresolvedAnomalies(ctx)
	require.NoError(t, err)
	assert.Len(t, unresolved, 2)

	// Flipping resolved is a full replace-upsert
	missing.Resolved = true
	require.NoError(t, db.SaveAnomaly(ctx, missing))

	unresolved, err = db.FindUnresolvedAnomalies(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, malformed.AnomalyID, unresolved[0].AnomalyID)
}
