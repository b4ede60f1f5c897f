// Package config reads process settings from BOARDWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

const Prefix = "BOARDWATCH"

// Egress modes for outcome delivery.
const (
	EgressHTTP = "http"
	EgressWS   = "ws"
	EgressAuto = "auto"
)

type LogConfig struct {
	Level   string `envconfig:"LEVEL" default:"info"`
	Format  string `envconfig:"FORMAT" default:"legacy"`
	Console bool   `envconfig:"TO_CONSOLE" default:"true"`
	ToFile  bool   `envconfig:"TO_FILE" default:"false"`
	File    string `envconfig:"FILE" default:"logs/boardwatch.log"`
	Caller  bool   `envconfig:"CALLER" default:"false"`
}

type AppConfig struct {
	HTTPAddr    string        `envconfig:"HTTP_ADDR" default:":8080"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	Threshold         float64 `envconfig:"THRESHOLD" default:"0.9"`
	PenalizeIllegal   bool    `envconfig:"PENALIZE_ILLEGAL" default:"true"`
	PositionalCapture bool    `envconfig:"POSITIONAL_CAPTURE" default:"false"`
	HistoryLimit      int     `envconfig:"HISTORY_LIMIT" default:"20"`

	WebhookURL   string `envconfig:"WEBHOOK_URL"`
	WebSocketURL string `envconfig:"WEBSOCKET_URL"`
	EgressMode   string `envconfig:"EGRESS_MODE" default:"auto"`

	Lang        string `envconfig:"LANG" default:"ko"`
	MessagesDir string `envconfig:"MESSAGES_DIR"`

	Log LogConfig `envconfig:"LOG"`
}

// Load processes the environment and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.WebSocketURL = strings.TrimSpace(c.WebSocketURL)
	c.EgressMode = strings.ToLower(strings.TrimSpace(c.EgressMode))
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports every invalid field at once.
func (c *AppConfig) Validate() error {
	var errs *multierror.Error
	if c.Threshold <= 0 || c.Threshold > 1 {
		errs = multierror.Append(errs, fmt.Errorf("THRESHOLD must be in (0, 1], got %v", c.Threshold))
	}
	if c.SessionTTL < 0 {
		errs = multierror.Append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.HistoryLimit <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	switch c.EgressMode {
	case EgressHTTP, EgressWS, EgressAuto:
	default:
		errs = multierror.Append(errs, fmt.Errorf("EGRESS_MODE must be http, ws or auto, got %q", c.EgressMode))
	}
	if c.EgressMode == EgressHTTP && c.WebhookURL == "" {
		errs = multierror.Append(errs, errors.New("WEBHOOK_URL is required for EGRESS_MODE=http"))
	}
	if c.EgressMode == EgressWS && c.WebSocketURL == "" {
		errs = multierror.Append(errs, errors.New("WEBSOCKET_URL is required for EGRESS_MODE=ws"))
	}
	switch c.Log.Format {
	case "legacy", "json", "console":
	default:
		errs = multierror.Append(errs, fmt.Errorf("LOG_FORMAT must be legacy, json or console, got %q", c.Log.Format))
	}
	return errs.ErrorOrNil()
}
