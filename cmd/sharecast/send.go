package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharecast/internal/feed"
	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/ipc"
	"go.klb.dev/sharecast/internal/normalize"
)

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Share text or files, as the OS share sheet would",
		Long: `Builds a share event from flags and delivers it to the daemon.

  sharecast send --type text/plain --text "https://example.com"
  sharecast send --type image/* --stream /tmp/a.jpg --stream /tmp/b.png
  echo hello | sharecast send --type text/plain --text -

By default the event goes through the gRPC Share call. With --feed it is
written to the event feed socket instead, exactly as the OS-integration
shim would.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runSend(cmd, v) },
	}

	f := cmd.Flags()
	f.String("action", "", "event action (default: send, or send_multiple with several streams)")
	f.String("type", "", "declared content type, e.g. text/plain or image/*")
	f.String("subject", "", "subject line of a text share")
	f.String("text", "", `text payload ("-" reads stdin)`)
	f.StringArray("stream", nil, "content handle (repeatable)")
	f.Bool("feed", false, "deliver over the event feed socket")
	f.String("feed-addr", "", "deliver over the event feed at this TCP address")
	addClientFlags(cmd)
	return cmd
}

func runSend(cmd *cobra.Command, v *viper.Viper) error {
	var subject, text *string
	if cmd.Flags().Changed("subject") {
		s := v.GetString("subject")
		subject = &s
	}
	if cmd.Flags().Changed("text") {
		s := v.GetString("text")
		if s == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			s = string(data)
		}
		text = &s
	}
	streams, _ := cmd.Flags().GetStringArray("stream")
	ev := buildEvent(v.GetString("action"), v.GetString("type"), subject, text, streams)

	if v.GetBool("feed") || v.GetString("feed-addr") != "" {
		return sendFeed(v, ev)
	}

	conn, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := grpcservice.NewClient(conn).Share(context.Background(), ev)
	if err != nil {
		return fmt.Errorf("share: %w", err)
	}
	f := res.GetFields()
	printAck(feed.Ack{
		Ingested: f["ingested"].GetBoolValue(),
		Channel:  f["channel"].GetStringValue(),
		Items:    int(f["items"].GetNumberValue()),
	})
	return nil
}

func sendFeed(v *viper.Viper, ev normalize.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		raw net.Conn
		err error
	)
	if addr := v.GetString("feed-addr"); addr != "" {
		var d net.Dialer
		raw, err = d.DialContext(ctx, "tcp", addr)
	} else {
		raw, err = ipc.Feed.Dial(ctx)
	}
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	c, err := feed.NewClient(raw, v.GetString("token"), v.GetString("source"))
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	defer c.Close()

	ack, err := c.Share(ev)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	printAck(ack)
	return nil
}

// buildEvent assembles the event a share sheet would produce.
func buildEvent(action, typ string, subject, text *string, streams []string) normalize.Event {
	ev := normalize.Event{Action: action, Type: typ, Subject: subject, Text: text}
	if ev.Action == "" {
		ev.Action = normalize.ActionSend
		if len(streams) > 1 {
			ev.Action = normalize.ActionSendMultiple
		}
	}
	if len(streams) == 1 {
		ev.Stream = streams[0]
	} else {
		ev.Streams = streams
	}
	return ev
}

func printAck(ack feed.Ack) {
	if !ack.Ingested {
		fmt.Println("ignored: not a share event")
		return
	}
	fmt.Printf("shared %d item(s) on %s\n", ack.Items, ack.Channel)
}
