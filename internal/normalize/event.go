package normalize

import (
	"encoding/json"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// Action names accepted on Event.Action. The Android intent action strings
// are accepted as aliases so a shim can forward intents untouched.
const (
	ActionSend         = "send"
	ActionSendMultiple = "send_multiple"

	androidSend         = "android.intent.action.SEND"
	androidSendMultiple = "android.intent.action.SEND_MULTIPLE"
)

// Event is a raw platform share event as handed over by the host.
type Event struct {
	Action string `json:"action"`
	// Type is the declared content type of the share, e.g. "image/*".
	Type    string   `json:"type,omitempty"`
	Subject *string  `json:"subject,omitempty"`
	Text    *string  `json:"text,omitempty"`
	Stream  string   `json:"stream,omitempty"`
	Streams []string `json:"streams,omitempty"`
}

// IsShare reports whether ev carries a send or send-multiple action.
// Anything else is not a share and must not touch cached state.
func (ev Event) IsShare() bool {
	switch ev.Action {
	case ActionSend, ActionSendMultiple, androidSend, androidSendMultiple:
		return true
	}
	return false
}

// isText reports whether the declared type is textual.
func (ev Event) isText() bool {
	return strings.HasPrefix(ev.Type, "text")
}

// FromMap builds an Event from loosely typed key/values, e.g. a decoded
// structpb.Struct or an intent extras bundle. Values of the wrong type are
// ignored rather than reported: a malformed event simply carries less.
func FromMap(m map[string]any) Event {
	var ev Event
	ev.Action, _ = m["action"].(string)
	ev.Type, _ = m["type"].(string)
	if s, ok := m["subject"].(string); ok {
		ev.Subject = &s
	}
	if s, ok := m["text"].(string); ok {
		ev.Text = &s
	}
	ev.Stream, _ = m["stream"].(string)
	switch v := m["streams"].(type) {
	case []any:
		for _, h := range v {
			if s, ok := h.(string); ok {
				ev.Streams = append(ev.Streams, s)
			}
		}
	case []string:
		ev.Streams = append(ev.Streams, v...)
	}
	return ev
}

// FromStruct is FromMap for the gRPC representation.
func FromStruct(s *structpb.Struct) Event {
	if s == nil {
		return Event{}
	}
	return FromMap(s.AsMap())
}

// ToStruct converts ev to its gRPC representation.
func (ev Event) ToStruct() (*structpb.Struct, error) {
	m := map[string]any{"action": ev.Action}
	if ev.Type != "" {
		m["type"] = ev.Type
	}
	if ev.Subject != nil {
		m["subject"] = *ev.Subject
	}
	if ev.Text != nil {
		m["text"] = *ev.Text
	}
	if ev.Stream != "" {
		m["stream"] = ev.Stream
	}
	if len(ev.Streams) > 0 {
		streams := make([]any, len(ev.Streams))
		for i, s := range ev.Streams {
			streams[i] = s
		}
		m["streams"] = streams
	}
	return structpb.NewStruct(m)
}

// ParseJSON decodes an Event leniently: invalid JSON or fields of the wrong
// type yield a zero Event, which normalizes to nothing.
func ParseJSON(data []byte) Event {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Event{}
	}
	return FromMap(m)
}
