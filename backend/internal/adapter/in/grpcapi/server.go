package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/gallery"
)

// Server отдает кадры демо по gRPC и сообщает о готовности через health
type Server struct {
	manager *gallery.Manager
	grpc    *grpc.Server
	health  *health.Server
	logger  *log.Logger
}

// NewServer создает gRPC сервер с сервисами gallery.Frames и grpc.health.v1.
// До вызова MarkServing все сервисы в состоянии NOT_SERVING.
func NewServer(manager *gallery.Manager, logger *log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		manager: manager,
		grpc:    grpc.NewServer(opts...),
		health:  health.NewServer(),
		logger:  logger,
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.grpc.RegisterService(&framesServiceDesc, s)

	for _, name := range s.serviceNames() {
		s.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// serviceNames возвращает имена для health: общий, сервис кадров и по одному на демо
func (s *Server) serviceNames() []string {
	names := []string{"", ServiceName}
	for _, d := range s.manager.Names() {
		names = append(names, ServiceName+"/"+d)
	}
	return names
}

// MarkServing переводит все сервисы в SERVING, когда цикл кадров запущен
func (s *Server) MarkServing() {
	for _, name := range s.serviceNames() {
		s.health.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	s.logger.Printf("[GRPC] Сервисы готовы")
}

// Serve обслуживает соединения до остановки
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Printf("[GRPC] Сервер слушает %s", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe слушает addr и останавливается при отмене ctx
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return s.Serve(lis)
}

// Stop переводит health в NOT_SERVING и дожидается завершения вызовов
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Printf("[GRPC] Сервер остановлен")
}

// List возвращает описания всех демо
func (s *Server) List(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	resp := &ListResponse{}
	for _, name := range s.manager.Names() {
		if rt, ok := s.manager.Lookup(name); ok {
			resp.Demos = append(resp.Demos, rt.Info())
			continue
		}
		d, err := s.manager.Registry().New(name, demo.DefaultOptions())
		if err != nil {
			return nil, status.Errorf(codes.Internal, "demo %s: %v", name, err)
		}
		info, err := gallery.Preview(d)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "%v", err)
		}
		resp.Demos = append(resp.Demos, info)
	}
	return resp, nil
}

// Stream отправляет кадры демо, пока клиент не отменит вызов
func (s *Server) Stream(req *StreamRequest, stream grpc.ServerStream) error {
	rt, err := s.manager.Get(req.Demo)
	if err != nil {
		if errors.Is(err, demo.ErrUnknownDemo) {
			return status.Errorf(codes.NotFound, "%v", err)
		}
		return status.Errorf(codes.Internal, "%v", err)
	}

	frames, cancel := rt.Subscribe()
	defer cancel()

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	var last time.Time
	sent := 0

	s.logger.Printf("[GRPC] Поток кадров %s: интервал %v", req.Demo, interval)

	for {
		select {
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()

		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if interval > 0 && time.Since(last) < interval {
				continue
			}

			out := *f
			if !req.WithTrails {
				out.Trails = nil
			}
			if err := stream.SendMsg(&out); err != nil {
				return err
			}
			last = time.Now()

			sent++
			if req.MaxFrames > 0 && sent >= req.MaxFrames {
				return nil
			}
		}
	}
}
