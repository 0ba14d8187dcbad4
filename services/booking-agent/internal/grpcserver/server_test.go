package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/md-rashed-zaman/slotbooker/libs/grpcx"
	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
)

func TestHealthFollowsChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var healthy atomic.Bool
	healthy.Store(true)
	srv := New(runtime.NopLogger(), 10*time.Millisecond, func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("db down")
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := srv.Serve(ctx, lis)

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor := func(wantErr bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			callCtx, callCancel := context.WithTimeout(ctx, time.Second)
			err := grpcx.CheckHealth(callCtx, conn, ServiceName)
			callCancel()
			if (err != nil) == wantErr {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("health did not settle (wantErr=%v, last err=%v)", wantErr, err)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor(false)
	healthy.Store(false)
	waitFor(true)
	healthy.Store(true)
	waitFor(false)
}
