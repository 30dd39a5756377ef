package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"go.klb.dev/sharecast/internal/gateway"
	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/share"
	"go.klb.dev/sharecast/internal/tlsconf"
)

// startShared serves gRPC and the gateway on one listener and returns its
// address.
func startShared(t *testing.T, token string, plain bool) (string, *hub.Hub) {
	t.Helper()
	h := hub.New()
	n := normalize.New(normalize.ResolverFunc(func(s string) (string, bool) { return s, true }))
	svc := grpcservice.New(h, ingest.New(n, h, nil), nil, token)

	gs := grpc.NewServer()
	grpcservice.Register(gs, svc)
	mux, err := gateway.New(svc)
	require.NoError(t, err)

	ln, err := listenTCP("127.0.0.1:0", token, plain)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveShared(ctx, ln, gs, mux) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return ln.Addr().String(), h
}

func TestSharedListenerPlain(t *testing.T) {
	addr, h := startShared(t, "", true)
	h.Ingest(share.Text, share.Batch{{Name: "text", Payload: "hi", Kind: share.KindText}})

	c, err := dialServer(addr, "", "tests", true)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "tcp ("+addr+")", c.transport)

	b, ok, err := grpcservice.NewClient(c).GetInitial(context.Background(), share.Text)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hi", b[0].Payload)

	resp, err := http.Get("http://" + addr + "/v1/text")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"name":"text","text":"hi","type":2}]`, string(body))
}

func TestSharedListenerTLS(t *testing.T) {
	addr, _ := startShared(t, "tok", false)

	c, err := dialServer(addr, "tok", "tests", false)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, grpcservice.NewClient(c).Reset(context.Background()))

	_, err = dialServer(addr, "wrong", "tests", false)
	assert.Error(t, err)

	id, err := tlsconf.Derive("tok")
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: id.ClientConfig()}}
	req, err := http.NewRequest(http.MethodGet, "https://"+addr+"/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSharedListenerShutsDownCleanly(t *testing.T) {
	for _, plain := range []bool{true, false} {
		t.Run(fmt.Sprintf("plain=%v", plain), func(t *testing.T) {
			for i := 0; i < 5; i++ {
				h := hub.New()
				n := normalize.New(normalize.ResolverFunc(func(s string) (string, bool) { return s, true }))
				svc := grpcservice.New(h, ingest.New(n, h, nil), nil, "tok")
				gs := grpc.NewServer()
				grpcservice.Register(gs, svc)
				mux, err := gateway.New(svc)
				require.NoError(t, err)

				ln, err := listenTCP("127.0.0.1:0", "tok", plain)
				require.NoError(t, err)
				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan error, 1)
				go func() { done <- serveShared(ctx, ln, gs, mux) }()

				c, err := dialServer(ln.Addr().String(), "tok", "tests", plain)
				require.NoError(t, err)
				require.NoError(t, grpcservice.NewClient(c).Reset(context.Background()))
				c.Close()

				cancel()
				select {
				case err := <-done:
					require.NoError(t, err)
				case <-time.After(10 * time.Second):
					t.Fatal("serveShared did not return")
				}
			}
		})
	}
}

func TestIgnoreClosed(t *testing.T) {
	for _, err := range []error{
		nil,
		net.ErrClosed,
		http.ErrServerClosed,
		grpc.ErrServerStopped,
		cmux.ErrServerClosed,
		cmux.ErrListenerClosed,
		fmt.Errorf("serve: %w", cmux.ErrServerClosed),
	} {
		assert.NoError(t, ignoreClosed(err), "%v", err)
	}
	assert.Error(t, ignoreClosed(errors.New("boom")))
}
