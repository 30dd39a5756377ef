package hub

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.klb.dev/sharecast/internal/share"
)

// LogBatch logs a share at INFO (channel, item count, kinds) and DEBUG
// (name plus a text preview cut at a rune boundary, or the path for media).
func LogBatch(event, source string, ch share.Channel, b share.Batch) {
	kinds := make([]string, len(b))
	for i, it := range b {
		kinds[i] = it.Kind.String()
	}
	slog.Info(event, "source", source, "channel", ch, "items", len(b), "kinds", kinds)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, it := range b {
		if ch == share.Text {
			slog.Debug("share item", "name", it.Name, "preview", preview(it.Payload, previewLen))
		} else {
			slog.Debug("share item", "name", it.Name, "kind", it.Kind, "path", it.Payload)
		}
	}
}

const previewLen = 120

// preview shortens s to at most n bytes without splitting a rune.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
