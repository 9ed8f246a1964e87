package msgid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare address", "abc@domain.com", "<abc@domain.com>"},
		{"already bracketed", "<abc@domain.com>", "<abc@domain.com>"},
		{"surrounding whitespace", "  abc@domain.com \n", "<abc@domain.com>"},
		{"bracketed with whitespace", " <abc@domain.com> ", "<abc@domain.com>"},
		{"only opening bracket", "<abc@domain.com", "<abc@domain.com>"},
		{"only closing bracket", "abc@domain.com>", "<abc@domain.com>"},
		{"minimal", "a@b", "<a@b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"abc@domain.com", "<x@y.org>", " weird..local%part@sub.domain.io "}

	for _, raw := range inputs {
		once, err := Normalize(raw)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
		assert.True(t, once[0] == '<' && once[len(once)-1] == '>')
	}
}

func TestNormalizeInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no at sign", "not-a-message-id"},
		{"no at sign bracketed", "<not-a-message-id>"},
		{"brackets only", "<>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
