// Package chessbuilder assembles the game service from configuration.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/auth"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/notify"
	"github.com/park285/cheese-chess/internal/pvpchess"
)

type Deps struct {
	Manager  *pvpchess.Manager
	Store    pvpchess.Store
	Repo     *pvpchess.Repository
	Messages *msgcat.Catalog
	Resolver *auth.Resolver
	Notifier notify.Sink
	Server   *httpapi.Server

	closers []func() error
}

// New wires the store, archive, notifier and HTTP handler. An empty REDIS_URL
// selects the in-memory store; an empty DATABASE_URL disables the archive.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	resolver, err := auth.NewResolver(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	d.Resolver = resolver

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = messages

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := pvpchess.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rs := pvpchess.NewRedisStore(rdb, cfg.GameTTL)
		d.Store = rs
		d.closers = append(d.closers, rs.Close)
		logger.Info("store_redis", zap.Duration("ttl", cfg.GameTTL))
	} else {
		d.Store = pvpchess.NewMemoryStore()
		logger.Warn("store_memory", zap.String("reason", "REDIS_URL not set"))
	}

	d.Manager = pvpchess.NewManager(d.Store)
	d.Manager.SetListLimit(cfg.ListLimit)
	d.Manager.AttachMessages(messages)

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := pvpchess.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		d.closers = append(d.closers, repo.Close)
		mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = repo.Migrate(mctx)
		cancel()
		if err != nil {
			return nil, err
		}
		d.Repo = repo
		d.Manager.AttachArchiver(repo)
	}

	sink, ws, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if ws != nil {
		d.closers = append(d.closers, ws.Close)
		if err := ws.Connect(ctx); err != nil {
			// auto mode falls back to HTTP; ws mode redials on first send
			logger.Warn("notify_ws_connect_error", zap.Error(err))
		}
	}
	d.Notifier = sink
	d.Manager.AttachNotifier(sink)

	d.Server = httpapi.New(d.Manager, resolver, messages)
	ok = true
	return d, nil
}

func buildNotifier(cfg *config.AppConfig, logger *zap.Logger) (notify.Sink, *notify.WSClient, error) {
	mode := notify.ParseMode(cfg.NotifyMode)
	var (
		hc *notify.HTTPClient
		ws *notify.WSClient
	)
	if cfg.NotifyBaseURL != "" {
		hc = notify.NewHTTPClient(cfg.NotifyBaseURL, notify.WithTimeout(5*time.Second), notify.WithRetry(2))
	}
	if cfg.NotifyWSURL != "" && !cfg.NotifyDryRun && (mode == notify.ModeWS || mode == notify.ModeAuto) {
		ws = notify.NewWSClient(cfg.NotifyWSURL, nil)
	}
	switch {
	case cfg.NotifyDryRun:
	case mode == notify.ModeHTTP && hc == nil, mode == notify.ModeAuto && hc == nil:
		return nil, nil, errors.New("notify: NOTIFY_BASE_URL not set")
	case mode == notify.ModeWS && ws == nil:
		return nil, nil, errors.New("notify: NOTIFY_WS_URL not set")
	}
	logger.Info("notify_mode", zap.String("mode", string(mode)), zap.Bool("dryrun", cfg.NotifyDryRun))
	return notify.NewSink(mode, cfg.NotifyDryRun, hc, ws, logger), ws, nil
}

// Close releases connections in reverse order of acquisition.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
