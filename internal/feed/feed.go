// Package feed accepts platform share events from the host's OS-integration
// shim over a local or TCP socket and hands them to the ingest dispatcher.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.klb.dev/sharecast/internal/crypto"
	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/message"
	"go.klb.dev/sharecast/internal/wire"
)

const authTimeout = 10 * time.Second

// Server serves the event feed protocol.
type Server struct {
	d     *ingest.Dispatcher
	token string
	box   *crypto.Box

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New returns a Server feeding d. With a non-empty token clients must send a
// matching AUTH first and every frame is sealed with a token-derived key.
func New(d *ingest.Dispatcher, token string) (*Server, error) {
	s := &Server{d: d, token: token, conns: make(map[net.Conn]struct{})}
	if token != "" {
		box, err := crypto.NewBox(token)
		if err != nil {
			return nil, err
		}
		s.box = box
	}
	return s, nil
}

// Serve accepts connections on ln until ctx is cancelled or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.track(conn, true)
		go func() {
			defer s.track(conn, false)
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) serveConn(ctx context.Context, raw net.Conn) {
	conn := wire.New(raw, s.box)
	defer conn.Close()
	log := slog.With("feed", raw.RemoteAddr().String())

	source := "feed"
	if s.token != "" {
		conn.SetReadDeadline(authTimeout)
		msg, err := conn.ReadMsg()
		if err != nil {
			log.Warn("auth read failed", "err", err)
			return
		}
		conn.SetReadDeadline(0)

		if msg.Type != message.TypeAuth || msg.Token() != s.token {
			log.Warn("auth failed")
			_ = conn.WriteMsg(&message.Message{Type: message.TypeError, Error: "auth_failed"})
			return
		}
		if msg.Source != "" {
			source = msg.Source
		}
		log.Info("authenticated", "source", source)
		_ = conn.WriteMsg(&message.Message{Type: message.TypeAck})
	}

	for {
		msg, err := conn.ReadMsg()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug("connection closed", "err", err)
			}
			return
		}

		var reply *message.Message
		switch msg.Type {
		case message.TypeShare:
			src := source
			if msg.Source != "" {
				src = msg.Source
			}
			res := s.d.Handle(ctx, src, msg.ShareEvent())
			reply = &message.Message{
				Type:     message.TypeAck,
				Ingested: res.Ingested,
				Channel:  res.Channel.String(),
				Items:    res.Items,
			}

		case message.TypePing:
			reply = &message.Message{Type: message.TypePong}

		default:
			log.Warn("unexpected message type", "type", msg.Type)
			reply = &message.Message{Type: message.TypeError, Error: "unexpected message type"}
		}

		if err := conn.WriteMsg(reply); err != nil {
			log.Error("write failed", "err", err)
			return
		}
	}
}
