package gateway

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/share"
)

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func waitListener(t *testing.T, h *hub.Hub, ch share.Channel) string {
	t.Helper()
	var id string
	require.Eventually(t, func() bool {
		id = h.Status()[ch].Listener
		return id != ""
	}, 2*time.Second, 10*time.Millisecond)
	return id
}

func TestWatchOverWebsocket(t *testing.T) {
	srv, h := newServer(t, "")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v1/watch/media"), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitListener(t, h, share.Media)

	h.Ingest(share.Media, share.Batch{{Name: "a.jpg", Payload: "/dcim/a.jpg", Kind: share.KindImage}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a.jpg","path":"/dcim/a.jpg","type":0}]`, string(msg))
}

func TestSecondWatcherEvictsFirst(t *testing.T) {
	srv, h := newServer(t, "")

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v1/watch/text"), nil)
	require.NoError(t, err)
	defer first.Close()
	oldID := waitListener(t, h, share.Text)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v1/watch/text"), nil)
	require.NoError(t, err)
	defer second.Close()
	require.Eventually(t, func() bool {
		id := h.Status()[share.Text].Listener
		return id != "" && id != oldID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWatchUnknownChannel(t *testing.T) {
	srv, _ := newServer(t, "")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v1/watch/audio"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
