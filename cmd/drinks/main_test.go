package main

import (
	"context"
	"testing"
	"time"

	"github.com/astro-web3/coffee-drinks/internal/config"
)

func testConfig(addr string) *config.Config {
	cfg := &config.Config{}
	cfg.Server.Addr = addr
	cfg.Server.Mode = "release"
	cfg.Server.ReadTimeout = time.Second
	cfg.Server.WriteTimeout = time.Second
	cfg.Auth.Issuer = "https://coffee-shop.example.com/"
	cfg.Auth.Audience = "drinks"
	cfg.Auth.Algorithms = []string{"RS256"}
	cfg.Auth.JWKSURL = "http://127.0.0.1:1/.well-known/jwks.json"
	cfg.Auth.FetchTimeout = time.Second
	cfg.Observability.LogLevel = "error"
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func TestRun_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig("127.0.0.1:0")) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	if err := run(context.Background(), testConfig("127.0.0.1:-1")); err == nil {
		t.Fatal("run() expected listen error")
	}
}
