// Package ingest connects event sources to the hub: every share event is
// normalized and the resulting batch ingested on its channel.
package ingest

import (
	"context"
	"log/slog"

	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/share"
	"go.klb.dev/sharecast/internal/telemetry"
)

// Result describes what Handle did with an event.
type Result struct {
	// Ingested is false when the event was not a share and was ignored.
	Ingested bool
	Channel  share.Channel
	Items    int
}

// Dispatcher is the single entry point for share events, whatever their
// source (gRPC, HTTP, the event feed socket, the clipboard watcher).
type Dispatcher struct {
	n       *normalize.Normalizer
	h       *hub.Hub
	metrics *telemetry.Metrics
}

// New returns a Dispatcher feeding h. metrics may be nil.
func New(n *normalize.Normalizer, h *hub.Hub, metrics *telemetry.Metrics) *Dispatcher {
	if metrics != nil && n.OnDrop == nil {
		n.OnDrop = func(handle string) {
			slog.Debug("content handle dropped", "handle", handle)
			metrics.Dropped(context.Background())
		}
	}
	return &Dispatcher{n: n, h: h, metrics: metrics}
}

// Handle normalizes ev and ingests the batch. Faults are logged and
// swallowed: a failed share must never take the host down.
func (d *Dispatcher) Handle(ctx context.Context, source string, ev normalize.Event) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("share event handling failed", "source", source, "panic", r)
			res = Result{}
		}
	}()

	if !ev.IsShare() {
		slog.Debug("ignoring non-share event", "source", source, "action", ev.Action)
		return Result{}
	}

	ch, b := d.n.Normalize(ev)
	d.h.Ingest(ch, b)
	d.metrics.Ingested(ctx, ch, len(b))
	hub.LogBatch("share ingested", source, ch, b)

	return Result{Ingested: true, Channel: ch, Items: len(b)}
}
