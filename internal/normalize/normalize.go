// Package normalize turns raw platform share events into share batches.
//
// A text share becomes a single text item on the text channel. A media
// share becomes one item per resolvable content handle on the media channel;
// handles that cannot be resolved are dropped. Normalization is total: a
// malformed event or a misbehaving resolver yields an empty batch, never an
// error or a partial one.
package normalize

import (
	"log/slog"
	"strings"

	"go.klb.dev/sharecast/internal/classify"
	"go.klb.dev/sharecast/internal/share"
)

const defaultSubject = "text"

// Resolver turns an opaque content handle into an absolute local path.
type Resolver interface {
	Resolve(handle string) (path string, ok bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(handle string) (string, bool)

func (f ResolverFunc) Resolve(handle string) (string, bool) { return f(handle) }

// Normalizer converts Events to batches.
type Normalizer struct {
	resolver Resolver

	// OnDrop, if set, is called for every handle that failed to resolve.
	OnDrop func(handle string)
}

// New returns a Normalizer that resolves media handles through r.
func New(r Resolver) *Normalizer {
	return &Normalizer{resolver: r}
}

// Normalize returns the channel ev belongs on and its batch. Non-share
// events return an empty media batch; callers should check Event.IsShare
// before ingesting.
func (n *Normalizer) Normalize(ev Event) (ch share.Channel, b share.Batch) {
	if !ev.IsShare() {
		return share.Media, share.Batch{}
	}
	if ev.isText() && ev.Text != nil {
		return share.Text, textBatch(ev)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("share normalization failed", "panic", r)
			ch, b = share.Media, share.Batch{}
		}
	}()
	return share.Media, n.mediaBatch(ev)
}

func textBatch(ev Event) share.Batch {
	subject := defaultSubject
	if ev.Subject != nil && *ev.Subject != "" {
		subject = *ev.Subject
	}
	return share.Batch{{Name: subject, Payload: *ev.Text, Kind: share.KindText}}
}

func (n *Normalizer) mediaBatch(ev Event) share.Batch {
	out := share.Batch{}
	for _, h := range handles(ev) {
		var (
			p  string
			ok bool
		)
		if n.resolver != nil {
			p, ok = n.resolver.Resolve(h)
		}
		if !ok || p == "" {
			if n.OnDrop != nil {
				n.OnDrop(h)
			}
			continue
		}
		out = append(out, share.Item{
			Name:    baseName(p),
			Payload: p,
			Kind:    classify.Classify(p),
		})
	}
	return out
}

// handles returns the list handles followed by the singular one, dropping
// empty and repeated entries.
func handles(ev Event) []string {
	all := make([]string, 0, len(ev.Streams)+1)
	all = append(all, ev.Streams...)
	if ev.Stream != "" {
		all = append(all, ev.Stream)
	}
	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, h := range all {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// baseName is the segment after the last "/".
func baseName(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}
