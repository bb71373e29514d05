package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/clinicore/scheduling-engine/internal/config"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

func TestNewRedisClientEmptyAddrReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: ""}

	if client := newRedisClient(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client for empty addr")
	}
}

func TestNewRedisClientUnreachableReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}

	if client := newRedisClient(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client when redis is unreachable")
	}
}

func TestNewRedisClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := newRedisClient(context.Background(), cfg, logger)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	t.Cleanup(func() { _ = client.Close() })
}
