package clip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/share"
)

func TestClipboardChangesBecomeTextShares(t *testing.T) {
	h := hub.New()
	d := ingest.New(normalize.New(nil), h, nil)

	feed := make(chan []byte)
	s := &Source{
		watch: func(context.Context) (<-chan []byte, error) { return feed, nil },
		h:     d,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	feed <- []byte("  \n")
	feed <- []byte("copied words")
	feed <- []byte("copied words")
	close(feed)
	<-done
	cancel()

	b, ok := h.Latest(share.Text)
	require.True(t, ok)
	assert.Equal(t, share.Batch{{Name: Subject, Payload: "copied words", Kind: share.KindText}}, b)
	_, ok = h.Latest(share.Media)
	assert.False(t, ok)
}

func TestHeadlessIdlesUntilCancelled(t *testing.T) {
	s := &Source{
		watch: func(context.Context) (<-chan []byte, error) { return nil, errors.New("no display") },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	s.Run(ctx)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
