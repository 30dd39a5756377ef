package grpcservice

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/sharecast/internal/hub"
	"go.klb.dev/sharecast/internal/normalize"
	"go.klb.dev/sharecast/internal/share"
)

// Client is a typed ShareService client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// GetInitial returns the cached batch for ch. ok is false when nothing is
// cached.
func (c *Client) GetInitial(ctx context.Context, ch share.Channel, opts ...grpc.CallOption) (b share.Batch, ok bool, err error) {
	method := GetInitialMediaMethod
	if ch == share.Text {
		method = GetInitialTextMethod
	}
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, false, err
	}
	lv := out.GetListValue()
	if lv == nil {
		return nil, false, nil
	}
	b, err = share.FromList(lv)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Reset clears the cached batches on the server.
func (c *Client) Reset(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, ResetMethod, &emptypb.Empty{}, &emptypb.Empty{}, opts...)
}

// Share submits a raw share event.
func (c *Client) Share(ctx context.Context, ev normalize.Event, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := ev.ToStruct()
	if err != nil {
		return nil, fmt.Errorf("share event: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ShareMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns the server's per-channel snapshot.
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) ([]hub.SlotStatus, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return statusFromStruct(out), nil
}

// Watch subscribes to ch and calls fn for every pushed batch until ctx is
// done, the server ends the stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, ch share.Channel, fn func(share.Batch) error, opts ...grpc.CallOption) error {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return err
	}
	x := &grpc.GenericClientStream[wrapperspb.StringValue, structpb.ListValue]{ClientStream: stream}
	if err := x.SendMsg(wrapperspb.String(ch.String())); err != nil {
		return err
	}
	if err := x.CloseSend(); err != nil {
		return err
	}
	for {
		lv, err := x.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		b, err := share.FromList(lv)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
}

func statusToStruct(slots []hub.SlotStatus) (*structpb.Struct, error) {
	chans := make([]any, len(slots))
	for i, st := range slots {
		chans[i] = map[string]any{
			"channel":  st.Channel.String(),
			"cached":   st.Cached,
			"items":    float64(st.Items),
			"listener": st.Listener,
		}
	}
	return structpb.NewStruct(map[string]any{"channels": chans})
}

func statusFromStruct(s *structpb.Struct) []hub.SlotStatus {
	var out []hub.SlotStatus
	for _, v := range s.GetFields()["channels"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		ch, err := share.ParseChannel(f["channel"].GetStringValue())
		if err != nil {
			continue
		}
		out = append(out, hub.SlotStatus{
			Channel:  ch,
			Cached:   f["cached"].GetBoolValue(),
			Items:    int(f["items"].GetNumberValue()),
			Listener: f["listener"].GetStringValue(),
		})
	}
	return out
}
