// Package clip turns text copied to the system clipboard into text shares,
// so a desktop session can feed the text channel without an OS share sheet.
package clip

import (
	"bytes"
	"context"
	"log/slog"

	"golang.design/x/clipboard"

	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/normalize"
)

// Subject is set on every share the clipboard produces.
const Subject = "clipboard"

// Handler consumes share events. *ingest.Dispatcher satisfies it.
type Handler interface {
	Handle(ctx context.Context, source string, ev normalize.Event) ingest.Result
}

// Watcher yields the clipboard text every time it changes. The channel is
// closed when ctx is done.
type Watcher func(ctx context.Context) (<-chan []byte, error)

// SystemWatcher watches the real clipboard. clipboard.Init is called here
// rather than in init() so that CLI sub-commands never touch the display.
func SystemWatcher(ctx context.Context) (<-chan []byte, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	return clipboard.Watch(ctx, clipboard.FmtText), nil
}

// Source forwards clipboard changes to a Handler.
type Source struct {
	watch Watcher
	h     Handler
}

// New returns a Source on the system clipboard.
func New(h Handler) *Source {
	return &Source{watch: SystemWatcher, h: h}
}

// Run blocks until ctx is done. Without a usable clipboard (headless host,
// no cgo) it logs once and idles.
func (s *Source) Run(ctx context.Context) {
	ch, err := s.watch(ctx)
	if err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		<-ctx.Done()
		return
	}
	slog.Info("watching clipboard for text shares")

	var last []byte
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(data, last) {
				continue
			}
			last = data
			s.h.Handle(ctx, "clipboard", textEvent(string(data)))
		}
	}
}

func textEvent(text string) normalize.Event {
	subject := Subject
	return normalize.Event{
		Action:  normalize.ActionSend,
		Type:    "text/plain",
		Subject: &subject,
		Text:    &text,
	}
}
