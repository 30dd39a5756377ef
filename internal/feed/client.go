package feed

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.klb.dev/sharecast/internal/crypto"
	"go.klb.dev/sharecast/internal/message"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/wire"
)

const replyTimeout = 10 * time.Second

// Ack is the daemon's answer to a SHARE.
type Ack struct {
	Ingested bool
	Channel  string
	Items    int
}

// Client is the shim side of the feed protocol.
type Client struct {
	conn   *wire.Conn
	source string
}

// NewClient wraps an established connection and authenticates when token is
// set.
func NewClient(conn net.Conn, token, source string) (*Client, error) {
	var box *crypto.Box
	if token != "" {
		b, err := crypto.NewBox(token)
		if err != nil {
			conn.Close()
			return nil, err
		}
		box = b
	}
	c := &Client{conn: wire.New(conn, box), source: source}

	if token != "" {
		if err := c.conn.WriteMsg(message.NewAuth(source, token)); err != nil {
			c.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
		if _, err := c.reply(); err != nil {
			c.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return c, nil
}

// Share sends ev and waits for the acknowledgement.
func (c *Client) Share(ev normalize.Event) (Ack, error) {
	msg, err := message.NewShare(c.source, ev)
	if err != nil {
		return Ack{}, err
	}
	if err := c.conn.WriteMsg(msg); err != nil {
		return Ack{}, err
	}
	r, err := c.reply()
	if err != nil {
		return Ack{}, err
	}
	return Ack{Ingested: r.Ingested, Channel: r.Channel, Items: r.Items}, nil
}

// Ping round-trips a PING.
func (c *Client) Ping() error {
	if err := c.conn.WriteMsg(&message.Message{Type: message.TypePing}); err != nil {
		return err
	}
	r, err := c.reply()
	if err != nil {
		return err
	}
	if r.Type != message.TypePong {
		return fmt.Errorf("unexpected reply %s", r.Type)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) reply() (*message.Message, error) {
	c.conn.SetReadDeadline(replyTimeout)
	defer c.conn.SetReadDeadline(0)
	r, err := c.conn.ReadMsg()
	if err != nil {
		return nil, err
	}
	if r.Type == message.TypeError {
		return nil, errors.New(r.Error)
	}
	return r, nil
}
