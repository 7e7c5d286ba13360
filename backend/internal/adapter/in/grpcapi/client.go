package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gallery3d/backend/internal/gallery"
)

// Client - клиент gallery.Frames для программ без браузера
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewClient создает клиента. По умолчанию соединение без TLS.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к %s: %w", target, err)
	}
	return &Client{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// List возвращает описания демо
func (c *Client) List(ctx context.Context) ([]gallery.Info, error) {
	var resp ListResponse
	if err := c.conn.Invoke(ctx, listMethod, &ListRequest{}, &resp, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return resp.Demos, nil
}

// Stream получает кадры и вызывает fn для каждого. Возвращает nil,
// когда сервер завершил поток, и ошибку fn, если она была.
func (c *Client) Stream(ctx context.Context, req StreamRequest, fn func(*gallery.Frame) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs, err := c.conn.NewStream(ctx, &framesServiceDesc.Streams[0], streamMethod, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return err
	}
	if err := cs.SendMsg(&req); err != nil {
		return err
	}
	if err := cs.CloseSend(); err != nil {
		return err
	}

	for {
		f := new(gallery.Frame)
		if err := cs.RecvMsg(f); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

// Health возвращает состояние сервиса; пустое имя - сервер целиком
func (c *Client) Health(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.conn.Close()
}
