package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("tint"))
	assert.Equal(t, FormatJSON, ParseFormat(" JSON "))
	assert.Equal(t, FormatAuto, ParseFormat("yaml"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestAutoIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo))
	log.Info("share ingested", "channel", "media", "items", 2)
	log.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "share ingested", rec["msg"])
	assert.Equal(t, "media", rec["channel"])
	assert.NotContains(t, rec, "source")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatText, slog.LevelInfo)).Warn("listener evicted", "channel", "text")
	assert.Contains(t, buf.String(), "listener evicted")
	assert.Contains(t, buf.String(), "channel=text")
}

func TestLevelVarIsLive(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)
	log := slog.New(NewHandler(&buf, FormatJSON, lv))

	log.Info("quiet")
	assert.Empty(t, buf.String())

	lv.Set(slog.LevelInfo)
	log.Info("loud")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
}
