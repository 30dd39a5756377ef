package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/sharecast/internal/grpcservice"
	"go.klb.dev/sharecast/internal/share"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// wsStream carries Watch output over a websocket, one JSON array per text
// message.
type wsStream struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *wsStream) Send(lv *structpb.ListValue) error {
	data, err := protojson.Marshal(lv)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsStream) Context() context.Context     { return s.ctx }
func (s *wsStream) SetHeader(metadata.MD) error  { return nil }
func (s *wsStream) SendHeader(metadata.MD) error { return nil }
func (s *wsStream) SetTrailer(metadata.MD)       {}
func (s *wsStream) RecvMsg(any) error            { return io.EOF }
func (s *wsStream) SendMsg(m any) error {
	lv, ok := m.(*structpb.ListValue)
	if !ok {
		return errors.New("wsStream: unexpected message type")
	}
	return s.Send(lv)
}

// watchHandler serves GET /v1/watch/{channel}: the connection becomes the
// channel's subscriber until either side closes it.
func watchHandler(mux *gwruntime.ServeMux, srv grpcservice.ShareServiceServer) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		_, outbound := gwruntime.MarshalerForRequest(mux, r)
		ctx, err := gwruntime.AnnotateIncomingContext(r.Context(), mux, r, grpcservice.WatchMethod)
		if err != nil {
			gwruntime.HTTPError(r.Context(), mux, outbound, w, r, err)
			return
		}
		name := params["channel"]
		if _, err := share.ParseChannel(name); err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, status.Error(codes.InvalidArgument, err.Error()))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		// Drain client frames so close and ping control messages are handled.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		err = srv.Watch(&wrapperspb.StringValue{Value: name}, &wsStream{ctx: ctx, conn: conn})
		code, reason := websocket.CloseNormalClosure, ""
		switch status.Code(err) {
		case codes.OK:
		case codes.Unauthenticated:
			code, reason = websocket.ClosePolicyViolation, status.Convert(err).Message()
		case codes.Aborted:
			code, reason = websocket.CloseGoingAway, status.Convert(err).Message()
		default:
			code, reason = websocket.CloseInternalServerErr, status.Convert(err).Message()
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	}
}
