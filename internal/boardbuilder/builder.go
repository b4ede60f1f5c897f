// Package boardbuilder wires configuration into a ready session service and
// its reporting pipeline.
package boardbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/park285/boardwatch/internal/config"
	"github.com/park285/boardwatch/internal/msgcat"
	"github.com/park285/boardwatch/internal/notify"
	"github.com/park285/boardwatch/internal/obslog"
	"github.com/park285/boardwatch/internal/report"
	"github.com/park285/boardwatch/internal/resolver"
	"github.com/park285/boardwatch/internal/session"
	"go.uber.org/zap"
)

type Deps struct {
	Service   *session.Service
	Formatter *report.Formatter
	Presenter *report.Presenter
	WebSocket *notify.WebSocket
}

// New builds the dependencies. Redis and Postgres are used when their URLs
// are set; otherwise sessions and history stay in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.Lang, cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	var store session.Store
	if cfg.RedisURL != "" {
		store, err = session.OpenRedis(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
	} else {
		logger.Info("session_store_memory")
		store = session.NewMemoryStore()
	}

	var repo session.Repository
	if cfg.DatabaseURL != "" {
		repo, err = session.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init postgres repository: %w", err)
		}
	} else {
		logger.Info("move_repository_memory")
		repo = session.NewMemoryRepository()
	}

	svc, err := session.NewService(store, repo, nil, session.Config{
		Threshold: cfg.Threshold,
		Mode: resolver.Mode{
			PenalizeIllegalAttempts: cfg.PenalizeIllegal,
			PositionalCapture:       cfg.PositionalCapture,
		},
		HistoryLimit: cfg.HistoryLimit,
	}, logger)
	if err != nil {
		return nil, err
	}

	var client *notify.Client
	if cfg.WebhookURL != "" {
		client = notify.NewClient(cfg.WebhookURL)
	}
	var ws *notify.WebSocket
	if cfg.WebSocketURL != "" {
		ws = notify.NewWebSocket(cfg.WebSocketURL, 5, logger)
		if err := ws.Connect(ctx); err != nil {
			if cfg.EgressMode == config.EgressWS {
				_ = svc.Close()
				return nil, fmt.Errorf("connect websocket: %w", err)
			}
			logger.Warn("ws_connect_failed", zap.Error(err), zap.String("url", cfg.WebSocketURL))
		}
	}

	formatter := report.NewFormatter(cat)
	egress := notify.NewEgress(cfg.EgressMode, client, ws, logger)
	images := client != nil || ws != nil
	presenter := report.NewPresenter(formatter, egress, images, logger)

	return &Deps{Service: svc, Formatter: formatter, Presenter: presenter, WebSocket: ws}, nil
}

func (d *Deps) Close() error {
	var errs *multierror.Error
	if d.WebSocket != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := d.WebSocket.Close(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close websocket: %w", err))
		}
		cancel()
	}
	if err := d.Service.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// LogOptions adapts the log section of cfg for obslog.
func LogOptions(cfg config.LogConfig) obslog.Options {
	opts := obslog.Options{Level: cfg.Level, Format: cfg.Format, Console: cfg.Console, Caller: cfg.Caller}
	if cfg.ToFile {
		opts.File = strings.TrimSpace(cfg.File)
	}
	return opts
}
