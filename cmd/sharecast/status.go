package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/hub"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what each channel holds",
		Long: `Displays, per channel, whether a batch is cached, how many items it has,
and which watcher (if any) is subscribed.

If a local daemon is running, the request is sent via the IPC socket. Pass
--server to target a daemon directly over TCP.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	conn, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	slots, err := grpcservice.NewClient(conn).Status(context.Background())
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}
	printStatus(os.Stdout, slots, conn.transport)
	return nil
}

func printStatus(out io.Writer, slots []hub.SlotStatus, transport string) {
	fmt.Fprintf(out, "Transport: %s\n\n", transport)

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "CHANNEL\tCACHED\tITEMS\tWATCHER\n")
	_, _ = fmt.Fprintf(tw, "-------\t------\t-----\t-------\n")
	for _, s := range slots {
		cached, items, watcher := "no", "-", "-"
		if s.Cached {
			cached = "yes"
			items = fmt.Sprint(s.Items)
		}
		if s.Listener != "" {
			watcher = s.Listener
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Channel, cached, items, watcher)
	}
	_ = tw.Flush()
}
