// Package hub implements the distribution cache for normalized shares.
// It is transport-agnostic: each channel keeps the latest batch and at most
// one listener, which receives every batch ingested while it is registered.
package hub

import (
	"fmt"
	"log/slog"
	"sync"

	"go.klb.dev/sharecast/internal/share"
)

// Listener is anything that can receive batches pushed by the hub.
type Listener interface {
	ID() string
	// Send delivers a batch to the listener. Must be non-blocking: it is
	// called with the channel lock held.
	Send(share.Batch)
}

// Evictable is an optional interface a Listener may implement to learn that
// it was replaced by a newer subscriber on the same channel.
type Evictable interface {
	Listener
	Evicted()
}

// SlotStatus is a point-in-time view of one channel.
type SlotStatus struct {
	Channel  share.Channel `json:"channel"`
	Cached   bool          `json:"cached"`
	Items    int           `json:"items"`
	Listener string        `json:"listener,omitempty"` // empty when nobody is subscribed
}

// slot is the state of one channel.
type slot struct {
	mu       sync.Mutex
	latest   share.Batch
	cached   bool
	listener Listener
}

// Hub holds the latest batch and the listener for each channel.
type Hub struct {
	slots [2]slot
}

// New returns a Hub with nothing cached and nobody subscribed.
func New() *Hub {
	return &Hub{}
}

// slot returns the state for ch. An unknown channel is a caller bug.
func (h *Hub) slot(ch share.Channel) *slot {
	if !ch.Valid() {
		panic(fmt.Sprintf("hub: unknown channel %d", int(ch)))
	}
	return &h.slots[ch]
}

// Ingest stores b as the latest batch for ch and pushes it to the current
// listener, if any.
func (h *Hub) Ingest(ch share.Channel, b share.Batch) {
	s := h.slot(ch)
	if b == nil {
		b = share.Batch{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = b.Clone()
	s.cached = true
	if s.listener != nil {
		s.listener.Send(b.Clone())
		slog.Debug("batch pushed", "channel", ch, "listener", s.listener.ID(), "items", len(b))
	}
}

// Latest returns the cached batch for ch. ok is false when nothing has been
// ingested since start or the last Reset.
func (h *Hub) Latest(ch share.Channel) (b share.Batch, ok bool) {
	s := h.slot(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cached {
		return nil, false
	}
	return s.latest.Clone(), true
}

// Reset forgets the cached batch of every channel. Listeners stay registered.
func (h *Hub) Reset() {
	for _, ch := range share.Channels {
		s := h.slot(ch)
		s.mu.Lock()
		s.latest = nil
		s.cached = false
		s.mu.Unlock()
	}
	slog.Debug("hub reset")
}

// Subscribe makes l the sole listener for ch. The cached batch is not
// replayed; l only sees batches ingested from now on.
func (h *Hub) Subscribe(ch share.Channel, l Listener) {
	if l == nil {
		h.Unsubscribe(ch)
		return
	}
	s := h.slot(ch)
	s.mu.Lock()
	prev := s.listener
	s.listener = l
	s.mu.Unlock()

	if prev != nil && prev != l {
		slog.Info("listener replaced", "channel", ch, "old", prev.ID(), "new", l.ID())
		if e, ok := prev.(Evictable); ok {
			e.Evicted()
		}
		return
	}
	slog.Info("listener subscribed", "channel", ch, "listener", l.ID())
}

// Unsubscribe removes whichever listener is registered on ch.
func (h *Hub) Unsubscribe(ch share.Channel) {
	s := h.slot(ch)
	s.mu.Lock()
	prev := s.listener
	s.listener = nil
	s.mu.Unlock()

	if prev != nil {
		slog.Info("listener unsubscribed", "channel", ch, "listener", prev.ID())
	}
}

// Release unsubscribes l from ch only if it is still the registered
// listener, so a stream that was replaced cannot tear down its successor.
func (h *Hub) Release(ch share.Channel, l Listener) bool {
	s := h.slot(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != l {
		return false
	}
	s.listener = nil
	slog.Info("listener unsubscribed", "channel", ch, "listener", l.ID())
	return true
}

// Status returns a snapshot of both channels in ordinal order.
func (h *Hub) Status() []SlotStatus {
	out := make([]SlotStatus, 0, len(share.Channels))
	for _, ch := range share.Channels {
		s := h.slot(ch)
		s.mu.Lock()
		st := SlotStatus{Channel: ch, Cached: s.cached, Items: len(s.latest)}
		if s.listener != nil {
			st.Listener = s.listener.ID()
		}
		s.mu.Unlock()
		out = append(out, st)
	}
	return out
}
