package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

func TestHealthRoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	srv, hs := NewServer()
	go func() {
		_ = srv.Serve(lis)
	}()
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, err := Dial(ctx, lis.Addr().String(), DialOptions{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := CheckHealth(ctx, conn, ""); err != nil {
		t.Fatalf("expected serving, got %v", err)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := CheckHealth(ctx, conn, ""); err == nil {
		t.Fatal("expected error for NOT_SERVING")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("empty id must not be stored")
	}
	ctx = WithRequestID(ctx, "rid-1")
	if RequestIDFromContext(ctx) != "rid-1" {
		t.Fatalf("unexpected id %q", RequestIDFromContext(ctx))
	}
	if len(NewRequestID()) != 36 {
		t.Fatal("expected a uuid")
	}
}

func TestUnaryServerRequestIDInterceptorReadsMetadata(t *testing.T) {
	icpt := UnaryServerRequestIDInterceptor()
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "from-client"))
	var got string
	_, err := icpt(ctx, nil, nil, func(ctx context.Context, _ any) (any, error) {
		got = RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if got != "from-client" {
		t.Fatalf("expected from-client, got %q", got)
	}
}

func TestDialTimesOutWithoutServer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	start := time.Now()
	if _, err := Dial(context.Background(), addr, DialOptions{Timeout: 300 * time.Millisecond}); err == nil {
		t.Fatal("expected dial error with nothing listening")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("dial should give up near its timeout, took %s", time.Since(start))
	}
}
