package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	b, err := NewBox("token")
	require.NoError(t, err)

	frame, err := b.Seal([]byte(`{"type":"SHARE"}`))
	require.NoError(t, err)
	plain, err := b.Open(frame)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"SHARE"}`, string(plain))

	again, err := b.Seal([]byte(`{"type":"SHARE"}`))
	require.NoError(t, err)
	assert.NotEqual(t, frame, again, "nonces must differ")
}

func TestOpenWithWrongToken(t *testing.T) {
	a, _ := NewBox("one")
	b, _ := NewBox("two")
	frame, err := a.Seal([]byte("x"))
	require.NoError(t, err)

	_, err = b.Open(frame)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = b.Open([]byte("short"))
	assert.Error(t, err)
}

func TestEmptyTokenRejected(t *testing.T) {
	_, err := NewBox("")
	assert.Error(t, err)
}
