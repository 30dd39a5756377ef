package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"go.klb.dev/sharecast/internal/clip"
	"go.klb.dev/sharecast/internal/feed"
	"go.klb.dev/sharecast/internal/gateway"
	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/ipc"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/resolve"
	"go.klb.dev/sharecast/internal/telemetry"
	"go.klb.dev/sharecast/internal/tlsconf"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the share daemon",
		Long: `Starts the sharecast daemon: the event feed for the OS-integration shim,
the gRPC ShareService (and its JSON gateway) on --addr, and the local IPC
socket used by the other sub-commands.

Content handles are resolved to local paths: absolute paths and file:// URIs
as-is, content://<authority>/... through --content-root authority=/dir.
Handles that do not resolve to a regular file are dropped.

The JSON gateway shares --addr with gRPC and speaks HTTP/1.1 (with TLS use
"curl --http1.1 -k").

Config file search order:
  /etc/sharecast/sharecast.toml
  $HOME/.config/sharecast/sharecast.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → SHARECAST_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", fmt.Sprintf("0.0.0.0:%d", defaultPort), "TCP listen address for gRPC and HTTP")
	f.String("token", "", "shared secret (empty = no auth; also keys TLS and feed encryption)")
	f.Bool("insecure", false, "serve plain TCP instead of TLS")
	f.Bool("no-http", false, "disable the JSON gateway")
	f.Bool("no-feed", false, "disable the local event feed socket")
	f.String("feed-addr", "", "additional TCP address for the event feed")
	f.StringSlice("content-root", nil, "map content://<authority> to a directory, as authority=/dir (repeatable)")
	f.Bool("clipboard", false, "turn copied text into text shares")
	f.String("otlp-endpoint", "", "OTLP/HTTP collector host:port for metrics (empty = disabled)")
	f.Bool("otlp-insecure", false, "send metrics without TLS")
	f.Duration("metrics-interval", time.Minute, "metric export interval")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	token := v.GetString("token")

	roots, err := resolve.ParseRoots(v.GetStringSlice("content-root"))
	if err != nil {
		return err
	}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint: v.GetString("otlp-endpoint"),
		Insecure: v.GetBool("otlp-insecure"),
		Interval: v.GetDuration("metrics-interval"),
		Service:  "sharecast",
		Version:  Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			slog.Warn("metrics shutdown", "err", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	h := hub.New()
	resolver := resolve.New(roots)
	d := ingest.New(normalize.New(resolver), h, metrics)
	watchConfig(v, resolver)

	slog.Info("sharecast starting",
		"version", Version,
		"addr", addr,
		"tls", !v.GetBool("insecure"),
		"auth", token != "",
		"content_roots", len(roots),
	)

	g, gctx := errgroup.WithContext(ctx)

	// Control socket for the CLI tools.
	ipcSrv := grpc.NewServer()
	grpcservice.Register(ipcSrv, grpcservice.New(h, d, metrics, ""))
	if ln, err := ipc.Control.Listen(); err != nil {
		slog.Warn("IPC socket unavailable", "err", err)
	} else {
		slog.Info("IPC socket listening", "path", ipc.Control.Path())
		g.Go(func() error { return ipcSrv.Serve(ln) })
	}

	// Event feed.
	fs, err := feed.New(d, token)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	if !v.GetBool("no-feed") {
		if ln, err := ipc.Feed.Listen(); err != nil {
			slog.Warn("feed socket unavailable", "err", err)
		} else {
			slog.Info("feed socket listening", "path", ipc.Feed.Path())
			g.Go(func() error { return fs.Serve(gctx, ln) })
		}
	}
	if fa := v.GetString("feed-addr"); fa != "" {
		ln, err := net.Listen("tcp", fa)
		if err != nil {
			return fmt.Errorf("listen %s: %w", fa, err)
		}
		slog.Info("feed listening", "addr", ln.Addr())
		g.Go(func() error { return fs.Serve(gctx, ln) })
	}

	if v.GetBool("clipboard") {
		g.Go(func() error {
			clip.New(d).Run(gctx)
			return nil
		})
	}

	// gRPC (+ gateway) on TCP.
	svc := grpcservice.New(h, d, metrics, token)
	tcpSrv := grpc.NewServer(grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
		MinTime:             20 * time.Second,
		PermitWithoutStream: true,
	}))
	grpcservice.Register(tcpSrv, svc)

	ln, err := listenTCP(addr, token, v.GetBool("insecure"))
	if err != nil {
		return err
	}
	slog.Info("listening", "addr", ln.Addr())

	if v.GetBool("no-http") {
		g.Go(func() error { return tcpSrv.Serve(ln) })
	} else {
		mux, err := gateway.New(svc)
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		g.Go(func() error { return serveShared(gctx, ln, tcpSrv, mux) })
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		stopGRPC(ipcSrv)
		stopGRPC(tcpSrv)
		return nil
	})

	if err := g.Wait(); err != nil && !isClosed(err) {
		return err
	}
	return nil
}

// listenTCP opens addr, wrapped in TLS derived from token unless plain.
func listenTCP(addr, token string, plain bool) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if plain {
		return ln, nil
	}
	id, err := tlsconf.Derive(token)
	if err != nil {
		ln.Close()
		return nil, err
	}
	slog.Info("TLS enabled", "fingerprint", id.Fingerprint())
	return tls.NewListener(ln, id.ServerConfig()), nil
}

// stopGRPC drains srv, cutting open Watch streams after shutdownTimeout.
func stopGRPC(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		srv.Stop()
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, cmux.ErrServerClosed) ||
		errors.Is(err, cmux.ErrListenerClosed)
}
