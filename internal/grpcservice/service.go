// Package grpcservice implements the ShareService gRPC server.
package grpcservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/ingest"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/share"
	"go.klb.dev/sharecast/internal/telemetry"
)

// SourceHeader carries the caller's self-reported name.
const SourceHeader = "x-sharecast-source"

// Service implements ShareServiceServer.
type Service struct {
	h       *hub.Hub
	d       *ingest.Dispatcher
	metrics *telemetry.Metrics
	token   string // empty = no auth
}

// New returns a Service backed by h and d. token may be empty to disable
// auth; metrics may be nil.
func New(h *hub.Hub, d *ingest.Dispatcher, metrics *telemetry.Metrics, token string) *Service {
	return &Service{h: h, d: d, metrics: metrics, token: token}
}

// GetInitialMedia implements ShareService.GetInitialMedia.
func (s *Service) GetInitialMedia(ctx context.Context, _ *emptypb.Empty) (*structpb.Value, error) {
	return s.latest(ctx, share.Media)
}

// GetInitialText implements ShareService.GetInitialText.
func (s *Service) GetInitialText(ctx context.Context, _ *emptypb.Empty) (*structpb.Value, error) {
	return s.latest(ctx, share.Text)
}

func (s *Service) latest(ctx context.Context, ch share.Channel) (*structpb.Value, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	b, ok := s.h.Latest(ch)
	if !ok {
		return structpb.NewNullValue(), nil
	}
	lv, err := share.AsList(ch, b)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return structpb.NewListValue(lv), nil
}

// Reset implements ShareService.Reset.
func (s *Service) Reset(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	s.h.Reset()
	slog.Info("cache reset", "source", sourceFromCtx(ctx))
	return &emptypb.Empty{}, nil
}

// Share implements ShareService.Share.
func (s *Service) Share(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	res := s.d.Handle(ctx, sourceFromCtx(ctx), normalize.FromStruct(req))
	out, err := structpb.NewStruct(map[string]any{
		"ingested": res.Ingested,
		"channel":  res.Channel.String(),
		"items":    float64(res.Items),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Status implements ShareService.Status.
func (s *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	out, err := statusToStruct(s.h.Status())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Watch implements ShareService.Watch. The stream becomes the channel's sole
// subscriber; it ends with codes.Aborted when a newer Watch replaces it.
func (s *Service) Watch(req *wrapperspb.StringValue, stream grpc.ServerStreamingServer[structpb.ListValue]) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}
	ch, err := share.ParseChannel(req.GetValue())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	wp := newWatchPeer("watch/" + uuid.NewString())
	s.h.Subscribe(ch, wp)
	defer s.h.Release(ch, wp)

	slog.Info("watch started", "channel", ch, "listener", wp.id, "source", sourceFromCtx(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wp.evicted:
			return status.Error(codes.Aborted, "replaced by a newer subscriber")
		case b := <-wp.mailbox:
			lv, err := share.AsList(ch, b)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(lv); err != nil {
				return err
			}
			s.metrics.Pushed(ctx, ch)
		}
	}
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	const prefix = "Bearer "
	tok := vals[0]
	if len(tok) > len(prefix) && tok[:len(prefix)] == prefix {
		tok = tok[len(prefix):]
	}
	if tok != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func sourceFromCtx(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(SourceHeader); len(vals) > 0 {
			return vals[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// ── watchPeer ──────────────────────────────────────────────────────────────

// watchPeer is the hub.Listener behind one Watch stream. Its mailbox holds
// at most one batch: a push the stream has not sent yet is superseded by the
// next one.
type watchPeer struct {
	id        string
	mailbox   chan share.Batch
	evicted   chan struct{}
	evictOnce sync.Once
}

func newWatchPeer(id string) *watchPeer {
	return &watchPeer{
		id:      id,
		mailbox: make(chan share.Batch, 1),
		evicted: make(chan struct{}),
	}
}

func (p *watchPeer) ID() string { return p.id }

func (p *watchPeer) Send(b share.Batch) {
	for {
		select {
		case p.mailbox <- b:
			return
		default:
		}
		select {
		case stale := <-p.mailbox:
			slog.Debug("watch push superseded", "listener", p.id, "items", len(stale))
		default:
		}
	}
}

func (p *watchPeer) Evicted() {
	p.evictOnce.Do(func() { close(p.evicted) })
}
