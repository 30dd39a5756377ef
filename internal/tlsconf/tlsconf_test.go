package tlsconf

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicKey(t *testing.T) {
	a, err := Derive("tok")
	require.NoError(t, err)
	b, err := Derive("tok")
	require.NoError(t, err)
	c, err := Derive("other")
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d, err := Derive("")
	require.NoError(t, err)
	e, err := Derive(DefaultPassphrase)
	require.NoError(t, err)
	assert.Equal(t, e.Fingerprint(), d.Fingerprint())
}

func handshake(t *testing.T, server, client *Identity) error {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", server.ServerConfig())
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_ = c.(*tls.Conn).Handshake()
		c.Close()
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), client.ClientConfig())
	if err != nil {
		return err
	}
	return conn.Close()
}

func TestHandshake(t *testing.T) {
	srv, err := Derive("tok")
	require.NoError(t, err)
	good, err := Derive("tok")
	require.NoError(t, err)
	bad, err := Derive("nope")
	require.NoError(t, err)

	assert.NoError(t, handshake(t, srv, good))
	assert.ErrorContains(t, handshake(t, srv, bad), "does not match")
}
