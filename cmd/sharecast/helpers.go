package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/ipc"
	"go.klb.dev/sharecast/internal/tlsconf"
)

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"SHARECAST_SOURCE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
	} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// defaultHosts is the probe order used when no explicit --server is given.
// The IPC socket is tried before any of them.
var defaultHosts = []string{
	"localhost",
	"host.docker.internal",     // Docker Desktop
	"host.containers.internal", // Podman rootless
}

// conn is a dialled daemon plus a description of how it was reached.
type conn struct {
	*grpc.ClientConn
	transport string
}

// dial connects to the daemon named by the client flags: the local IPC socket
// when no --server is given and a daemon is listening, otherwise TCP.
func dial(cmd *cobra.Command, v *viper.Viper) (*conn, error) {
	source := v.GetString("source")
	if !cmd.Flags().Changed("server") && v.GetString("server") == "" && ipc.Control.IsRunning() {
		cc, err := dialIPC(source)
		if err == nil {
			return &conn{ClientConn: cc, transport: fmt.Sprintf("ipc (%s)", ipc.Control.Path())}, nil
		}
	}
	return dialServer(v.GetString("server"), v.GetString("token"), source, v.GetBool("insecure"))
}

// dialIPC connects to the local control socket. No token is needed: the
// socket is local and owner-restricted.
func dialIPC(source string) (*grpc.ClientConn, error) {
	return grpc.NewClient("passthrough:///"+ipc.Control.Path(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ipc.Control.Dial(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(&clientCreds{source: source}),
	)
}

// dialServer probes hosts in order and returns the first reachable one.
// token is used for both TLS key derivation and per-RPC auth.
func dialServer(server, token, source string, plain bool) (*conn, error) {
	addrs := make([]string, 0, len(defaultHosts))
	if server != "" {
		addrs = append(addrs, withPort(server))
	} else {
		for _, h := range defaultHosts {
			addrs = append(addrs, net.JoinHostPort(h, strconv.Itoa(defaultPort)))
		}
	}

	opts := []grpc.DialOption{
		grpc.WithPerRPCCredentials(&clientCreds{token: token, source: source}),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	scheme := "tls"
	if plain {
		scheme = "tcp"
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		id, err := tlsconf.Derive(token)
		if err != nil {
			return nil, fmt.Errorf("tls credentials: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(id.ClientCredentials()))
	}

	var lastErr error
	for _, addr := range addrs {
		cc, err := grpc.NewClient(addr, opts...)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", addr, err)
			continue
		}
		// Verify reachability with a short timeout
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err = grpcservice.NewClient(cc).Status(ctx)
		cancel()
		if err == nil {
			return &conn{ClientConn: cc, transport: fmt.Sprintf("%s (%s)", scheme, addr)}, nil
		}
		_ = cc.Close()
		lastErr = fmt.Errorf("%s: %w", addr, err)
	}
	return nil, fmt.Errorf("no reachable sharecast daemon: %w", lastErr)
}

// withPort appends the default port when addr has none.
func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(defaultPort))
}

type clientCreds struct {
	token  string
	source string
}

func (c *clientCreds) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.token != "" {
		md["authorization"] = "Bearer " + c.token
	}
	if c.source != "" {
		md[grpcservice.SourceHeader] = c.source
	}
	return md, nil
}

func (c *clientCreds) RequireTransportSecurity() bool { return false }
