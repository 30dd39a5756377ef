// sharecast: share-sheet events in, media and text batches out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/sharecast/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "sharecast",
		Short: "Share-sheet events in, media and text batches out",
		Long: `sharecast receives platform share events (a single item or several, text
or files), normalizes them into batches of named, typed items, and keeps the
latest batch per channel ("media" and "text") for whoever asks: a one-shot
query, or a single live watcher per channel.

Run "sharecast serve" on the host that receives share events. The
OS-integration shim writes events to the feed socket; everything else talks
gRPC (or JSON over HTTP) to the same daemon.

Config file search order (first found wins):
  /etc/sharecast/sharecast.toml
  $HOME/.config/sharecast/sharecast.toml
  path supplied via --config

All flags can be set via SHARECAST_<FLAG> env vars or config-file keys.
See "sharecast serve --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newGetCmd("media"),
		newGetCmd("text"),
		newWatchCmd(),
		newResetCmd(),
		newSendCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("sharecast %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
