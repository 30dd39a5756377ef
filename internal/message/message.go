// Package message defines the event feed protocol spoken between the host's
// OS-integration shim and the sharecast daemon.
//
// All messages are newline-delimited JSON, one message per line. A session
// optionally starts with AUTH, then carries any number of SHARE messages,
// each answered with ACK (or ERROR).
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.klb.dev/sharecast/internal/normalize"
)

// Type identifies the kind of message.
type Type string

const (
	TypeShare Type = "SHARE"
	TypeAck   Type = "ACK"
	TypeAuth  Type = "AUTH"
	TypePing  Type = "PING"
	TypePong  Type = "PONG"
	TypeError Type = "ERROR"
)

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// SHARE: the raw platform event. Kept raw so a malformed event degrades
	// to an empty share instead of failing the whole frame.
	Event json.RawMessage `json:"event,omitempty"`

	// AUTH: token is base64-encoded.
	Payload string `json:"payload,omitempty"`

	// ACK
	Ingested bool   `json:"ingested,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Items    int    `json:"items,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// NewShare wraps ev in a SHARE message.
func NewShare(source string, ev normalize.Event) (*Message, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("share encode: %w", err)
	}
	return &Message{Type: TypeShare, Source: source, Event: raw}, nil
}

// NewAuth returns an AUTH message for token.
func NewAuth(source, token string) *Message {
	return &Message{
		Type:    TypeAuth,
		Source:  source,
		Payload: base64.StdEncoding.EncodeToString([]byte(token)),
	}
}

// Token returns the decoded AUTH token, or "" if it is not valid base64.
func (m *Message) Token() string {
	b, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return ""
	}
	return string(b)
}

// ShareEvent returns the carried event, parsed leniently.
func (m *Message) ShareEvent() normalize.Event {
	return normalize.ParseJSON(m.Event)
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}
