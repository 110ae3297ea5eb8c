package chessbuilder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/notify"
	"github.com/park285/cheese-chess/internal/pvpchess"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		JWTSecret:  "builder-secret",
		GameTTL:    time.Hour,
		ListLimit:  10,
		NotifyMode: "log",
	}
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := baseConfig()
	cfg.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if _, ok := d.Store.(*pvpchess.RedisStore); !ok {
		t.Fatalf("store = %T; want *RedisStore", d.Store)
	}
	if _, ok := d.Notifier.(*notify.LogSink); !ok {
		t.Fatalf("notifier = %T; want *LogSink", d.Notifier)
	}

	g, err := d.Manager.CreateGame(context.Background(), pvpchess.Player{ID: "u1"}, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if ttl := mr.TTL("pvp:game:" + g.ID); ttl != time.Hour {
		t.Fatalf("game ttl = %v", ttl)
	}

	rec := httptest.NewRecorder()
	d.Server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestNewInMemory(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*pvpchess.MemoryStore); !ok {
		t.Fatalf("store = %T; want *MemoryStore", d.Store)
	}
	if d.Repo != nil {
		t.Fatalf("archive attached without DATABASE_URL")
	}
}

func TestNewRejects(t *testing.T) {
	tests := map[string]func(*config.AppConfig){
		"no secret":        func(c *config.AppConfig) { c.JWTSecret = "" },
		"http without url": func(c *config.AppConfig) { c.NotifyMode = "http" },
		"ws without url":   func(c *config.AppConfig) { c.NotifyMode = "ws" },
		"bad redis url":    func(c *config.AppConfig) { c.RedisURL = "mysql://nope" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(cfg)
			if d, err := New(context.Background(), cfg, nil); err == nil {
				_ = d.Close()
				t.Fatalf("New accepted %s", name)
			}
		})
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil config accepted")
	}
}

func TestNewDryRunIgnoresTransport(t *testing.T) {
	cfg := baseConfig()
	cfg.NotifyMode = "http"
	cfg.NotifyDryRun = true
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Notifier.(*notify.LogSink); !ok {
		t.Fatalf("notifier = %T; want *LogSink", d.Notifier)
	}
}
