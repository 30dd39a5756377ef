package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// serveShared splits ln between the JSON gateway (HTTP/1.x) and gRPC
// (everything else) until ctx is done.
func serveShared(ctx context.Context, ln net.Listener, gs *grpc.Server, mux *gwruntime.ServeMux) error {
	m := cmux.New(ln)
	httpL := m.Match(cmux.HTTP1Fast())
	grpcL := m.Match(cmux.Any())

	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreClosed(gs.Serve(grpcL)) })
	g.Go(func() error { return ignoreClosed(hs.Serve(httpL)) })
	g.Go(func() error { return ignoreClosed(m.Serve()) })
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = hs.Shutdown(sctx)
		stopGRPC(gs)
		return ignoreClosed(ln.Close())
	})
	return g.Wait()
}

func ignoreClosed(err error) error {
	if err == nil || isClosed(err) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
