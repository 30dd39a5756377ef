package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/share"
)

// newGetCmd builds the one-shot query for a channel ("media" or "text").
func newGetCmd(name string) *cobra.Command {
	v := viper.New()
	ch, err := share.ParseChannel(name)
	if err != nil {
		panic(err)
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Print the cached %s batch", name),
		Long: fmt.Sprintf(`Prints the batch most recently shared on the %s channel as a JSON array
of {"name", "%s", "type"} objects, or "null" when nothing has been shared
since the daemon started or was reset.

With --plain one payload is printed per line instead.`, name, payloadKey(ch)),
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runGet(cmd, v, ch) },
	}

	cmd.Flags().Bool("plain", false, "print one payload per line")
	addClientFlags(cmd)
	return cmd
}

func payloadKey(ch share.Channel) string {
	if ch == share.Text {
		return "text"
	}
	return "path"
}

func runGet(cmd *cobra.Command, v *viper.Viper, ch share.Channel) error {
	conn, err := dial(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()

	b, ok, err := grpcservice.NewClient(conn).GetInitial(context.Background(), ch)
	if err != nil {
		return fmt.Errorf("%s: %w", ch, err)
	}
	return printBatch(os.Stdout, ch, b, ok, v.GetBool("plain"))
}

func printBatch(w io.Writer, ch share.Channel, b share.Batch, ok, plain bool) error {
	if plain {
		for _, it := range b {
			fmt.Fprintln(w, it.Payload)
		}
		return nil
	}
	if !ok {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	data, err := share.Encode(ch, b)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
