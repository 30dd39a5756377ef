// Package share defines the normalized share items handed to consumers.
//
// A Batch is the ordered list of items derived from one platform share event.
// Batches live on one of two channels: media items carry a resolved local
// path, text items carry the shared text itself.
//
// Serialized form (one JSON array per batch):
//
//	[{"name":"a.jpg","path":"/dcim/a.jpg","type":0}]   media channel
//	[{"name":"text","text":"hello","type":2}]          text channel
package share

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the coarse content category of an item. Consumers decode it by
// ordinal, so the values below must never be renumbered.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
	KindText
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindText:
		return "text"
	default:
		return "any"
	}
}

// Item is one shared unit.
type Item struct {
	// Name is the final path segment for media, the subject for text.
	Name string
	// Payload is an absolute local path for media, the literal text for text.
	Payload string
	Kind    Kind
}

// Batch is the ordered result of normalizing one share event. It may be empty.
type Batch []Item

// Clone returns a copy of b that shares no backing array with it.
// A nil batch stays nil.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	copy(out, b)
	return out
}

// Channel identifies one of the two independent distribution streams.
type Channel int

const (
	Media Channel = iota
	Text
)

// Channels lists every valid channel in ordinal order.
var Channels = []Channel{Media, Text}

// ErrUnknownChannel is returned by ParseChannel for names other than
// "media" and "text".
var ErrUnknownChannel = errors.New("unknown channel")

func (c Channel) String() string {
	switch c {
	case Media:
		return "media"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// MarshalText encodes c by name.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (c *Channel) UnmarshalText(b []byte) error {
	ch, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

// Valid reports whether c is Media or Text.
func (c Channel) Valid() bool { return c == Media || c == Text }

// ParseChannel converts a transport-level channel name to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "media":
		return Media, nil
	case "text":
		return Text, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
}
