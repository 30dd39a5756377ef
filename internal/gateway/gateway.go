// Package gateway exposes the ShareService over HTTP/JSON.
//
//	GET  /v1/media    cached media batch or null
//	GET  /v1/text     cached text batch or null
//	POST /v1/reset    clear both caches
//	POST /v1/share    submit a raw share event (JSON object)
//	GET  /v1/status   per-channel snapshot
//	GET  /v1/watch/{channel}  websocket, one JSON batch per message
//
// Handlers call the service in-process, so auth and logging behave exactly
// as they do over gRPC.
package gateway

import (
	"context"
	"net/http"
	"net/textproto"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/sharecast/internal/grpcservice"
)

// SourceHTTPHeader is mapped to the gRPC source metadata key.
const SourceHTTPHeader = "X-Sharecast-Source"

type route struct {
	method string
	path   string
	rpc    string
	call   func(ctx context.Context, srv grpcservice.ShareServiceServer, r *http.Request, in gwruntime.Marshaler) (proto.Message, error)
}

var routes = []route{
	{http.MethodGet, "/v1/media", grpcservice.GetInitialMediaMethod, func(ctx context.Context, srv grpcservice.ShareServiceServer, _ *http.Request, _ gwruntime.Marshaler) (proto.Message, error) {
		return srv.GetInitialMedia(ctx, &emptypb.Empty{})
	}},
	{http.MethodGet, "/v1/text", grpcservice.GetInitialTextMethod, func(ctx context.Context, srv grpcservice.ShareServiceServer, _ *http.Request, _ gwruntime.Marshaler) (proto.Message, error) {
		return srv.GetInitialText(ctx, &emptypb.Empty{})
	}},
	{http.MethodPost, "/v1/reset", grpcservice.ResetMethod, func(ctx context.Context, srv grpcservice.ShareServiceServer, _ *http.Request, _ gwruntime.Marshaler) (proto.Message, error) {
		return srv.Reset(ctx, &emptypb.Empty{})
	}},
	{http.MethodPost, "/v1/share", grpcservice.ShareMethod, func(ctx context.Context, srv grpcservice.ShareServiceServer, r *http.Request, in gwruntime.Marshaler) (proto.Message, error) {
		var ev structpb.Struct
		if err := in.NewDecoder(r.Body).Decode(&ev); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "share event: %v", err)
		}
		return srv.Share(ctx, &ev)
	}},
	{http.MethodGet, "/v1/status", grpcservice.StatusMethod, func(ctx context.Context, srv grpcservice.ShareServiceServer, _ *http.Request, _ gwruntime.Marshaler) (proto.Message, error) {
		return srv.Status(ctx, &emptypb.Empty{})
	}},
}

// headerMatcher forwards the source header alongside the gateway defaults.
func headerMatcher(key string) (string, bool) {
	if textproto.CanonicalMIMEHeaderKey(key) == SourceHTTPHeader {
		return grpcservice.SourceHeader, true
	}
	return gwruntime.DefaultHeaderMatcher(key)
}

// New returns a mux serving srv over HTTP.
func New(srv grpcservice.ShareServiceServer) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux(gwruntime.WithIncomingHeaderMatcher(headerMatcher))
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, handler(mux, srv, rt)); err != nil {
			return nil, err
		}
	}
	if err := mux.HandlePath(http.MethodGet, "/v1/watch/{channel}", watchHandler(mux, srv)); err != nil {
		return nil, err
	}
	return mux, nil
}

func handler(mux *gwruntime.ServeMux, srv grpcservice.ShareServiceServer, rt route) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		inbound, outbound := gwruntime.MarshalerForRequest(mux, r)
		ctx, err := gwruntime.AnnotateIncomingContext(r.Context(), mux, r, rt.rpc)
		if err != nil {
			gwruntime.HTTPError(r.Context(), mux, outbound, w, r, err)
			return
		}
		resp, err := rt.call(ctx, srv, r, inbound)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		gwruntime.ForwardResponseMessage(ctx, mux, outbound, w, r, resp)
	}
}
