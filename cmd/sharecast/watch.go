package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/share"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch media|text",
		Short: "Stream batches as they are shared",
		Long: `Subscribes to a channel and prints every batch shared on it, one JSON array
per line, until interrupted.

Each channel has a single watcher: starting a second one replaces the first,
which exits with an error.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"media", "text"},
		PreRunE:   func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:      func(cmd *cobra.Command, args []string) error { return runWatch(cmd, v, args[0]) },
	}

	cmd.Flags().Bool("plain", false, "print one payload per line")
	addClientFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper, name string) error {
	ch, err := share.ParseChannel(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	plain := v.GetBool("plain")
	err = grpcservice.NewClient(conn).Watch(ctx, ch, func(b share.Batch) error {
		return printBatch(os.Stdout, ch, b, true, plain)
	})
	switch {
	case err == nil, ctx.Err() != nil:
		return nil
	case status.Code(err) == codes.Aborted:
		return errors.New("replaced by another watcher")
	default:
		return fmt.Errorf("watch %s: %w", ch, err)
	}
}
