package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/traceidx/pkg/models"
)

func TestCheckMessageID(t *testing.T) {
	v := New(nil)

	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantType  models.AnomalyType
		wantNorm  string
	}{
		{"absent", "", false, models.AnomalyMissingMessageID, ""},
		{"whitespace only", "   ", false, models.AnomalyMissingMessageID, ""},
		{"no at sign", "not-a-message-id", false, models.AnomalyMalformedMessageID, ""},
		{"normalizes but no dotted domain", "<a@b>", false, models.AnomalyMalformedMessageID, ""},
		{"one letter tld", "<a@b.c>", false, models.AnomalyMalformedMessageID, ""},
		{"valid bare", "test@example.com", true, "", "<test@example.com>"},
		{"valid bracketed", "<abc.123@mail.example.org>", true, "", "<abc.123@mail.example.org>"},
		{"valid with specials", "a_b%c+d-e@sub.domain.io", true, "", "<a_b%c+d-e@sub.domain.io>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.CheckMessageID(tt.raw)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantValid, result.Recoverable)
			if tt.wantValid {
				assert.Equal(t, tt.wantNorm, result.Normalized)
			} else {
				assert.Equal(t, tt.wantType, result.AnomalyType)
				assert.NotEmpty(t, result.Details)
			}
		})
	}
}

func TestCheckMessageIDMissingVariantsAgree(t *testing.T) {
	v := New(nil)

	for _, raw := range []string{"", "   "} {
		result := v.CheckMessageID(raw)
		assert.False(t, result.Valid)
		assert.False(t, result.Recoverable)
		assert.Equal(t, models.AnomalyMissingMessageID, result.AnomalyType)
	}
}

func TestCheckFile(t *testing.T) {
	v := New(nil)
	dir := t.TempDir()

	t.Run("readable file", func(t *testing.T) {
		path := filepath.Join(dir, "ok.mbox")
		require.NoError(t, os.WriteFile(path, []byte("From ada\n"), 0644))

		result := v.CheckFile(path)
		assert.True(t, result.Valid)
		assert.True(t, result.Recoverable)
	})

	t.Run("empty file is readable", func(t *testing.T) {
		path := filepath.Join(dir, "empty.mbox")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		result := v.CheckFile(path)
		assert.True(t, result.Valid)
	})

	t.Run("missing file", func(t *testing.T) {
		result := v.CheckFile(filepath.Join(dir, "nope.mbox"))
		assert.False(t, result.Valid)
		assert.False(t, result.Recoverable)
		assert.Equal(t, models.AnomalyFileNotFound, result.AnomalyType)
	})

	t.Run("directory", func(t *testing.T) {
		result := v.CheckFile(dir)
		assert.False(t, result.Valid)
		assert.Equal(t, models.AnomalyFileNotFound, result.AnomalyType)
	})

	t.Run("unreadable file", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission checks are bypassed for root")
		}
		path := filepath.Join(dir, "secret.mbox")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0000))

		result := v.CheckFile(path)
		assert.False(t, result.Valid)
		assert.Equal(t, models.AnomalyFileNotFound, result.AnomalyType)
		assert.Equal(t, "Permission denied reading file: "+path, result.Details)
	})
}

func TestRecordAnomalyWithoutStore(t *testing.T) {
	v := New(nil)

	id, err := v.RecordAnomaly(context.Background(), models.AnomalyMissingMessageID, "/mail/b.mbox", nil, "header absent")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	other, err := v.RecordAnomaly(context.Background(), models.AnomalyMissingMessageID, "/mail/b.mbox", nil, "header absent")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestSummarizeWithoutStore(t *testing.T) {
	v := New(nil)

	summary, err := v.Summarize(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Unresolved)
	assert.Empty(t, summary.ByType)
}
