package wire

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/sharecast/internal/crypto"
	"go.klb.dev/sharecast/internal/message"
)

func pipe(t *testing.T, box *crypto.Box) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return New(a, box), New(b, box)
}

func TestPlainRoundTrip(t *testing.T) {
	w, r := pipe(t, nil)
	go func() { _ = w.WriteMsg(message.NewAuth("shim", "tok")) }()

	m, err := r.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeAuth, m.Type)
	assert.Equal(t, "tok", m.Token())
}

func TestSealedRoundTrip(t *testing.T) {
	box, err := crypto.NewBox("tok")
	require.NoError(t, err)
	w, r := pipe(t, box)
	go func() { _ = w.WriteMsg(&message.Message{Type: message.TypePing}) }()

	m, err := r.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypePing, m.Type)
}

func TestOversizedLineRejected(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	r := New(b, nil)

	go func() { _, _ = a.Write([]byte(strings.Repeat("x", MaxMessageSize+10) + "\n")) }()
	_, err := r.ReadMsg()
	assert.ErrorContains(t, err, "too large")
}
