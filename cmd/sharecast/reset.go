package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharecast/internal/grpcservice"
)

func newResetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the cached batches",
		Long: `Clears the cached batch on both channels. Watchers stay subscribed and
receive the next share as usual.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := dial(cmd, v)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := grpcservice.NewClient(conn).Reset(context.Background()); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			return nil
		},
	}

	addClientFlags(cmd)
	return cmd
}
