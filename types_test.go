package retrace_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/retracehq/retrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeys(t *testing.T) {
	id := uuid.MustParse("a2b6e0d8-3f41-4c8a-9a64-2af1b6f0c3d9")

	t.Run("recording key lives under the session prefix", func(t *testing.T) {
		assert.Equal(t, "sessions/a2b6e0d8-3f41-4c8a-9a64-2af1b6f0c3d9/recording.json", retrace.RecordingKey(id))
		assert.Equal(t, "sessions/a2b6e0d8-3f41-4c8a-9a64-2af1b6f0c3d9/", retrace.SessionPrefix(id))
	})

	t.Run("attachment key lives under the session prefix", func(t *testing.T) {
		key := retrace.AttachmentKey(id, "console.log")
		assert.Equal(t, "sessions/a2b6e0d8-3f41-4c8a-9a64-2af1b6f0c3d9/attachments/console.log", key)
	})

	t.Run("prefix covers every session key", func(t *testing.T) {
		prefix := retrace.SessionPrefix(id)
		assert.Contains(t, retrace.RecordingKey(id), prefix)
		assert.Contains(t, retrace.AttachmentKey(id, "a.png"), prefix)
	})
}

func TestSession_JSON(t *testing.T) {
	t.Run("empty summary and user agent are omitted", func(t *testing.T) {
		data, err := json.Marshal(retrace.Session{ID: uuid.New()})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "summary")
		assert.NotContains(t, string(data), "user_agent")
	})

	t.Run("field names are snake case", func(t *testing.T) {
		data, err := json.Marshal(retrace.Session{
			ID:            uuid.New(),
			PageURL:       "https://app.example.com",
			EventCount:    3,
			RecordingKey:  "sessions/x/recording.json",
			RecordingSize: 42,
		})
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		for _, field := range []string{"id", "page_url", "event_count", "recording_key", "recording_size", "created_at", "updated_at"} {
			assert.Contains(t, decoded, field)
		}
	})
}
