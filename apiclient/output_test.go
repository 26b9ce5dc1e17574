package apiclient_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/apiclient"
	"github.com/retracehq/retrace/blob"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		formatter := apiclient.NewFormatter(true, false)
		_, ok := formatter.(*apiclient.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter", func(t *testing.T) {
		formatter := apiclient.NewFormatter(false, false)
		_, ok := formatter.(*apiclient.HumanFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		formatter := apiclient.NewFormatter(false, true)
		hf, ok := formatter.(*apiclient.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func TestHumanFormatter_FormatRecord(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		id := uuid.New()
		session := retrace.Session{
			ID:            id,
			PageURL:       "https://app.example.com/checkout",
			EventCount:    42,
			RecordingKey:  "sessions/" + id.String() + "/recording.json",
			RecordingSize: 1024,
		}

		var buf bytes.Buffer
		err := formatter.FormatRecord(&buf, session)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "Recorded: "+id.String())
		assert.Contains(t, output, "42 events")
		assert.Contains(t, output, "1.0 KB")
	})

	t.Run("quiet mode", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{Quiet: true}

		var buf bytes.Buffer
		err := formatter.FormatRecord(&buf, retrace.Session{ID: uuid.New()})
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}

func TestHumanFormatter_FormatSessionList(t *testing.T) {
	t.Run("with items", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		result := &retrace.ListResult{
			Items: []retrace.Session{
				{
					ID:            uuid.New(),
					PageURL:       "https://app.example.com/checkout",
					EventCount:    10,
					RecordingSize: 1024,
					CreatedAt:     time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
				},
				{
					ID:            uuid.New(),
					PageURL:       "https://app.example.com/login",
					EventCount:    20,
					RecordingSize: 2048,
					CreatedAt:     time.Date(2026, 1, 14, 9, 15, 0, 0, time.UTC),
				},
			},
			NextCursor: "cursor123",
		}

		var buf bytes.Buffer
		err := formatter.FormatSessionList(&buf, result)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "ID")
		assert.Contains(t, output, "PAGE URL")
		assert.Contains(t, output, "EVENTS")
		assert.Contains(t, output, "https://app.example.com/checkout")
		assert.Contains(t, output, "2 session(s)")
		assert.Contains(t, output, "3.0 KB total")
		assert.Contains(t, output, `--cursor "cursor123"`)
	})

	t.Run("empty list", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		result := &retrace.ListResult{}

		var buf bytes.Buffer
		err := formatter.FormatSessionList(&buf, result)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "No sessions found")
	})

	t.Run("long url truncated", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		longURL := "https://app.example.com/very/long/path/that/keeps/going/and/going/and/going/forever"
		result := &retrace.ListResult{
			Items: []retrace.Session{{ID: uuid.New(), PageURL: longURL}},
		}

		var buf bytes.Buffer
		err := formatter.FormatSessionList(&buf, result)
		require.NoError(t, err)

		assert.NotContains(t, buf.String(), longURL)
		assert.Contains(t, buf.String(), "...")
	})
}

func TestHumanFormatter_FormatSession(t *testing.T) {
	formatter := &apiclient.HumanFormatter{}
	id := uuid.New()
	session := retrace.Session{
		ID:            id,
		PageURL:       "https://app.example.com/checkout",
		UserAgent:     "Mozilla/5.0",
		EventCount:    42,
		RecordingKey:  "sessions/" + id.String() + "/recording.json",
		RecordingSize: 2048,
		Summary:       "User abandoned checkout.",
		CreatedAt:     time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 1, 15, 10, 31, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	err := formatter.FormatSession(&buf, session)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, id.String())
	assert.Contains(t, output, "Mozilla/5.0")
	assert.Contains(t, output, "User abandoned checkout.")
	assert.Contains(t, output, "2.0 KB")
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	formatter := &apiclient.HumanFormatter{}
	okID := uuid.New()
	badID := uuid.New()
	results := []apiclient.DeleteResult{
		{ID: okID, Deleted: true},
		{ID: badID, Deleted: false, Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	err := formatter.FormatDelete(&buf, results)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Deleted: "+okID.String())
	assert.Contains(t, output, "Error: "+badID.String()+" - not found")
}

func TestHumanFormatter_FormatDownload(t *testing.T) {
	formatter := &apiclient.HumanFormatter{}
	id := uuid.New()
	result := &apiclient.DownloadResult{
		ID:        id,
		LocalPath: "recording.json",
		Size:      2048,
		ETag:      "etag123",
	}

	var buf bytes.Buffer
	err := formatter.FormatDownload(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Downloaded: "+id.String()+" -> recording.json")
	assert.Contains(t, output, "2.0 KB")
	assert.Contains(t, output, "ETag: etag123")
}

func TestHumanFormatter_FormatShare(t *testing.T) {
	formatter := &apiclient.HumanFormatter{}
	result := apiclient.ShareResult{
		Token:     "abc.def.ghi",
		URL:       "/api/share/abc.def.ghi",
		ExpiresAt: time.Date(2026, 1, 16, 10, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	err := formatter.FormatShare(&buf, result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Share URL: /api/share/abc.def.ghi")
	assert.Contains(t, output, "Expires: 2026-01-16")
}

func TestHumanFormatter_FormatBlobList(t *testing.T) {
	t.Run("with items", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		result := &blob.ListResult{
			Blobs: []blob.Entry{
				{Key: "sessions/a/recording.json", Size: 1024, UploadedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)},
				{Key: "sessions/b/recording.json", Size: 2048, UploadedAt: time.Date(2026, 1, 14, 9, 15, 0, 0, time.UTC)},
			},
			HasMore: true,
			Cursor:  "sessions/b/recording.json",
		}

		var buf bytes.Buffer
		err := formatter.FormatBlobList(&buf, result)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "KEY")
		assert.Contains(t, output, "sessions/a/recording.json")
		assert.Contains(t, output, "2 blob(s)")
		assert.Contains(t, output, "3.0 KB total")
		assert.Contains(t, output, `--cursor "sessions/b/recording.json"`)
	})

	t.Run("empty list", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}

		var buf bytes.Buffer
		err := formatter.FormatBlobList(&buf, &blob.ListResult{})
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "No blobs found")
	})
}

func TestHumanFormatter_FormatProfileList(t *testing.T) {
	formatter := &apiclient.HumanFormatter{}
	profiles := []apiclient.Profile{
		{Name: "staging", Server: "http://staging:5710", IngestKey: "staging-ingest-key"},
		{Name: "production", Server: "https://retrace.example.com", IngestKey: "production-ingest-key"},
	}

	var buf bytes.Buffer
	err := formatter.FormatProfileList(&buf, profiles, "production", false)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "* production")
	assert.Contains(t, output, "  staging")
	// Secrets masked by default
	assert.NotContains(t, output, "staging-ingest-key")
	assert.Contains(t, output, "stag...-key")
}

func TestHumanFormatter_FormatProfileShow(t *testing.T) {
	t.Run("masked", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		profile := apiclient.Profile{
			Name:          "production",
			Server:        "https://retrace.example.com",
			IngestKey:     "production-ingest-key",
			AdminUser:     "admin",
			AdminPassword: "super-secret-pass",
		}

		var buf bytes.Buffer
		err := formatter.FormatProfileShow(&buf, profile, true, false)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "production (default)")
		assert.Contains(t, output, "admin")
		assert.NotContains(t, output, "super-secret-pass")
	})

	t.Run("show secrets", func(t *testing.T) {
		formatter := &apiclient.HumanFormatter{}
		profile := apiclient.Profile{
			Name:      "production",
			Server:    "https://retrace.example.com",
			IngestKey: "production-ingest-key",
		}

		var buf bytes.Buffer
		err := formatter.FormatProfileShow(&buf, profile, false, true)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "production-ingest-key")
	})
}

func TestJSONFormatter_FormatSessionList(t *testing.T) {
	formatter := &apiclient.JSONFormatter{}
	id := uuid.New()
	result := &retrace.ListResult{
		Items: []retrace.Session{
			{ID: id, PageURL: "https://app.example.com/", EventCount: 5},
		},
		NextCursor: "cursor123",
	}

	var buf bytes.Buffer
	err := formatter.FormatSessionList(&buf, result)
	require.NoError(t, err)

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	items, ok := output["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "cursor123", output["next_cursor"])
}

func TestJSONFormatter_FormatDelete(t *testing.T) {
	formatter := &apiclient.JSONFormatter{}
	okID := uuid.New()
	badID := uuid.New()
	results := []apiclient.DeleteResult{
		{ID: okID, Deleted: true},
		{ID: badID, Deleted: false, Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	err := formatter.FormatDelete(&buf, results)
	require.NoError(t, err)

	var output map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	require.Len(t, output["results"], 2)
	assert.Equal(t, okID.String(), output["results"][0]["id"])
	assert.Equal(t, true, output["results"][0]["deleted"])
	assert.Equal(t, badID.String(), output["results"][1]["id"])
	assert.Equal(t, false, output["results"][1]["deleted"])
	assert.Equal(t, "not found", output["results"][1]["error"])
}

func TestJSONFormatter_FormatPurge(t *testing.T) {
	formatter := &apiclient.JSONFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatPurge(&buf, "sessions/old/", 7)
	require.NoError(t, err)

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "sessions/old/", output["prefix"])
	assert.Equal(t, float64(7), output["deleted"])
}

func TestJSONFormatter_FormatProfileList(t *testing.T) {
	formatter := &apiclient.JSONFormatter{}
	profiles := []apiclient.Profile{
		{Name: "production", Server: "https://retrace.example.com", IngestKey: "production-ingest-key"},
	}

	var buf bytes.Buffer
	err := formatter.FormatProfileList(&buf, profiles, "production", false)
	require.NoError(t, err)

	var output map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	require.Len(t, output["profiles"], 1)
	assert.Equal(t, "production", output["profiles"][0]["name"])
	assert.Equal(t, true, output["profiles"][0]["default"])
	assert.NotEqual(t, "production-ingest-key", output["profiles"][0]["ingest_key"])
}

func TestJSONFormatter_FormatError(t *testing.T) {
	formatter := &apiclient.JSONFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatError(&buf, errors.New("test error"))
	require.NoError(t, err)

	var output map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "test error", output["error"])
}
