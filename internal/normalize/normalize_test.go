package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/sharecast/internal/share"
)

func strp(s string) *string { return &s }

// identity resolves every handle except those listed in missing.
func identity(missing ...string) ResolverFunc {
	return func(h string) (string, bool) {
		for _, m := range missing {
			if h == m {
				return "", false
			}
		}
		return h, true
	}
}

func TestNormalizeText(t *testing.T) {
	n := New(identity())

	tests := []struct {
		name    string
		subject *string
		want    string
	}{
		{name: "empty subject", subject: strp(""), want: "text"},
		{name: "missing subject", subject: nil, want: "text"},
		{name: "subject kept", subject: strp("Link"), want: "Link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, b := n.Normalize(Event{
				Action:  ActionSend,
				Type:    "text/plain",
				Subject: tt.subject,
				Text:    strp("hello"),
			})
			assert.Equal(t, share.Text, ch)
			assert.Equal(t, share.Batch{{Name: tt.want, Payload: "hello", Kind: share.KindText}}, b)
		})
	}
}

func TestNormalizeTextWithoutBodyIsEmpty(t *testing.T) {
	n := New(identity())
	_, b := n.Normalize(Event{Action: ActionSend, Type: "text/plain", Subject: strp("s")})
	require.NotNil(t, b)
	assert.Empty(t, b)
}

func TestNormalizeTextWinsOverHandles(t *testing.T) {
	n := New(identity())
	ch, b := n.Normalize(Event{
		Action: ActionSend,
		Type:   "text/plain",
		Text:   strp("https://example.com"),
		Stream: "/dcim/a.jpg",
	})
	assert.Equal(t, share.Text, ch)
	require.Len(t, b, 1)
	assert.Equal(t, share.KindText, b[0].Kind)
	assert.Equal(t, "https://example.com", b[0].Payload)
}

func TestNormalizeTextTypeWithoutBodyFallsBackToHandles(t *testing.T) {
	n := New(identity())
	ch, b := n.Normalize(Event{Action: ActionSend, Type: "text/plain", Stream: "/docs/notes.txt"})
	assert.Equal(t, share.Media, ch)
	assert.Equal(t, share.Batch{{Name: "notes.txt", Payload: "/docs/notes.txt", Kind: share.KindText}}, b)
}

func TestNormalizeMultipleImages(t *testing.T) {
	n := New(identity())
	ch, b := n.Normalize(Event{
		Action:  ActionSendMultiple,
		Type:    "image/*",
		Streams: []string{"/dcim/a.jpg", "/dcim/b.png"},
	})
	assert.Equal(t, share.Media, ch)
	assert.Equal(t, share.Batch{
		{Name: "a.jpg", Payload: "/dcim/a.jpg", Kind: share.KindImage},
		{Name: "b.png", Payload: "/dcim/b.png", Kind: share.KindImage},
	}, b)
}

func TestNormalizeDropsUnresolved(t *testing.T) {
	n := New(identity("h2"))
	var dropped []string
	n.OnDrop = func(h string) { dropped = append(dropped, h) }

	_, b := n.Normalize(Event{
		Action:  ActionSendMultiple,
		Streams: []string{"/x/h1.mp4", "h2", "/x/h3.bin"},
	})
	assert.Equal(t, share.Batch{
		{Name: "h1.mp4", Payload: "/x/h1.mp4", Kind: share.KindVideo},
		{Name: "h3.bin", Payload: "/x/h3.bin", Kind: share.KindAny},
	}, b)
	assert.Equal(t, []string{"h2"}, dropped)
}

func TestNormalizeSingularHandleAppendedAndDeduplicated(t *testing.T) {
	n := New(identity())
	_, b := n.Normalize(Event{
		Action:  ActionSend,
		Stream:  "/d/c.jpg",
		Streams: []string{"/d/a.jpg", "/d/c.jpg", "/d/a.jpg", ""},
	})
	names := make([]string, len(b))
	for i, it := range b {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, names)

	_, b = n.Normalize(Event{Action: ActionSend, Stream: "/d/z.jpg", Streams: []string{"/d/a.jpg"}})
	require.Len(t, b, 2)
	assert.Equal(t, "z.jpg", b[1].Name)
}

func TestNormalizeAndroidActionAliases(t *testing.T) {
	n := New(identity())
	_, b := n.Normalize(Event{Action: "android.intent.action.SEND", Stream: "/d/a.jpg"})
	assert.Len(t, b, 1)
}

func TestNormalizeMalformedEvents(t *testing.T) {
	n := New(identity())
	for _, ev := range []Event{
		{},
		{Action: "android.intent.action.VIEW", Stream: "/d/a.jpg"},
		{Action: "open", Type: "text/plain", Text: strp("x")},
	} {
		assert.False(t, ev.IsShare())
		_, b := n.Normalize(ev)
		assert.Empty(t, b)
	}
}

func TestNormalizeRecoversResolverPanic(t *testing.T) {
	n := New(ResolverFunc(func(h string) (string, bool) {
		if h == "bad" {
			panic("content provider crashed")
		}
		return h, true
	}))
	var b share.Batch
	assert.NotPanics(t, func() {
		_, b = n.Normalize(Event{Action: ActionSendMultiple, Streams: []string{"/d/a.jpg", "bad"}})
	})
	assert.Empty(t, b)
}

func TestNormalizeNilResolverDropsAll(t *testing.T) {
	_, b := New(nil).Normalize(Event{Action: ActionSend, Stream: "/d/a.jpg"})
	assert.Empty(t, b)
}

func TestFromMapIgnoresWrongTypes(t *testing.T) {
	ev := FromMap(map[string]any{
		"action":  "send_multiple",
		"type":    42,
		"subject": nil,
		"streams": []any{"/a.jpg", 7, "/b.jpg"},
		"stream":  true,
	})
	assert.Equal(t, "send_multiple", ev.Action)
	assert.Empty(t, ev.Type)
	assert.Nil(t, ev.Subject)
	assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, ev.Streams)
	assert.Empty(t, ev.Stream)
}

func TestStructRoundTrip(t *testing.T) {
	in := Event{
		Action:  ActionSend,
		Type:    "text/plain",
		Subject: strp("s"),
		Text:    strp("t"),
		Streams: []string{"/a"},
	}
	s, err := in.ToStruct()
	require.NoError(t, err)
	assert.Equal(t, in, FromStruct(s))
}

func TestParseJSONInvalidIsZero(t *testing.T) {
	assert.Equal(t, Event{}, ParseJSON([]byte("{not json")))
	ev := ParseJSON([]byte(`{"action":"send","stream":"/d/a.jpg"}`))
	assert.Equal(t, "/d/a.jpg", ev.Stream)
}
