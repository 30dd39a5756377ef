// Package ipc locates and opens the daemon's local sockets.
//
// The control socket carries the same gRPC ShareService as the TCP listener,
// so CLI sub-commands on the same host need no token or TLS. The feed socket
// carries the newline-delimited event feed from the OS-integration shim.
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/<name>.sock, else $TMPDIR/<name>.sock
//   - Windows:       \\.\pipe\<name>
//
// Either path can be overridden through its environment variable.
package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// ErrRunning is returned by Listen when another process is accepting on the
// endpoint.
var ErrRunning = errors.New("ipc: endpoint already in use")

// Endpoint names one of the daemon's local sockets.
type Endpoint struct {
	Name string
	Env  string
}

var (
	Control = Endpoint{Name: "sharecast", Env: "SHARECAST_SOCKET"}
	Feed    = Endpoint{Name: "sharecast-feed", Env: "SHARECAST_FEED_SOCKET"}
)

// Path returns the socket path for e, honouring the override variable.
func (e Endpoint) Path() string {
	if p := os.Getenv(e.Env); p != "" {
		return p
	}
	return defaultPath(e.Name)
}

// Listen opens a listener on e, replacing a stale socket left by a crashed
// run. A live socket is left alone and ErrRunning is returned.
func (e Endpoint) Listen() (net.Listener, error) {
	return listen(e.Path())
}

// Dial connects to e.
func (e Endpoint) Dial(ctx context.Context) (net.Conn, error) {
	return dial(ctx, e.Path())
}

// IsRunning reports whether something is accepting on e. It does a cheap
// dial-and-close; no data is exchanged.
func (e Endpoint) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c, err := e.Dial(ctx)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
