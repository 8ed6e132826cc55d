package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	original := Metadata{
		Content:    "user prefers dark mode",
		Context:    "settings discussion",
		Importance: 7,
		Tags:       []string{"preference", "ui"},
		Timestamp:  "2026-08-01T10:00:00Z",
		CreatedAt:  "2026-08-01T10:00:01Z",
		Client:     "cli-v2",
		SessionID:  "sess-1",
		Extra:      map[string]string{"source": "chat"},
	}

	restored := MetadataFromMap(original.ToMap())
	assert.Equal(t, original, restored)
}

func TestMetadataZeroValuesOmitted(t *testing.T) {
	m := Metadata{Content: "bare"}
	raw := m.ToMap()

	assert.Equal(t, "bare", raw[keyContent])
	assert.NotContains(t, raw, keyImportance)
	assert.NotContains(t, raw, keyTags)
	assert.NotContains(t, raw, keyClient)
}

func TestMetadataFromMapMalformedFieldsDegrade(t *testing.T) {
	m := MetadataFromMap(map[string]string{
		keyContent:    "x",
		keyImportance: "not-a-number",
		keyTags:       "{broken json",
	})

	assert.Equal(t, "x", m.Content)
	assert.Zero(t, m.Importance)
	assert.Nil(t, m.Tags)
}

func TestMetadataEventTime(t *testing.T) {
	t.Run("timestamp preferred", func(t *testing.T) {
		m := Metadata{Timestamp: "2026-08-01T10:00:00Z", CreatedAt: "2026-08-02T10:00:00Z"}
		ts, ok := m.eventTime()
		require.True(t, ok)
		assert.Equal(t, 1, ts.Day())
	})

	t.Run("falls back to created at", func(t *testing.T) {
		m := Metadata{CreatedAt: "2026-08-02T10:00:00Z"}
		ts, ok := m.eventTime()
		require.True(t, ok)
		assert.Equal(t, 2, ts.Day())
	})

	t.Run("unparseable timestamp falls through", func(t *testing.T) {
		m := Metadata{Timestamp: "yesterday", CreatedAt: "2026-08-02T10:00:00Z"}
		ts, ok := m.eventTime()
		require.True(t, ok)
		assert.Equal(t, 2, ts.Day())
	})

	t.Run("no timestamps", func(t *testing.T) {
		m := Metadata{}
		_, ok := m.eventTime()
		assert.False(t, ok)
	})
}
