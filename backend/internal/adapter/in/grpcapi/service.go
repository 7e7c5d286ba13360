package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"gallery3d/backend/internal/gallery"
)

const (
	ServiceName = "gallery.Frames"

	listMethod   = "/" + ServiceName + "/List"
	streamMethod = "/" + ServiceName + "/Stream"
)

// ListRequest - запрос списка демо
type ListRequest struct{}

// ListResponse - описания всех демо
type ListResponse struct {
	Demos []gallery.Info `json:"demos"`
}

// StreamRequest - подписка на кадры одного демо
type StreamRequest struct {
	Demo       string `json:"demo"`
	IntervalMs int    `json:"interval_ms,omitempty"` // 0 - каждый кадр
	WithTrails bool   `json:"with_trails,omitempty"`
	MaxFrames  int    `json:"max_frames,omitempty"` // 0 - без ограничения
}

// FramesServer - серверная часть gallery.Frames
type FramesServer interface {
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
	Stream(req *StreamRequest, stream grpc.ServerStream) error
}

func listHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FramesServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: listMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FramesServer).List(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(StreamRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FramesServer).Stream(in, stream)
}

// framesServiceDesc описывает сервис вручную, без protoc
var framesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FramesServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "List",
			Handler:    listHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       streamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "gallery/frames",
}
