// Package notify delivers player notifications to an external messaging
// gateway over HTTP (fasthttp) or a persistent WebSocket (nhooyr).
package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Sink accepts a message for one recipient.
type Sink interface {
	Notify(ctx context.Context, recipient, message string) error
}

// Frame is the payload sent to the gateway by both transports.
type Frame struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Data      string `json:"data"`
}

func textFrame(recipient, message string) Frame {
	return Frame{Type: "text", Recipient: recipient, Data: message}
}

type Mode string

const (
	ModeHTTP Mode = "http"
	ModeWS   Mode = "ws"
	ModeAuto Mode = "auto"
	ModeLog  Mode = "log"
)

// ParseMode maps a config value to a Mode, defaulting to log.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHTTP, ModeWS, ModeAuto:
		return m
	default:
		return ModeLog
	}
}

// NewSink selects a transport. Auto prefers the WebSocket when connected and
// falls back to HTTP once. A dry run only logs.
func NewSink(mode Mode, dryrun bool, c *HTTPClient, ws *WSClient, logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dryrun {
		return &LogSink{logger: logger}
	}
	switch mode {
	case ModeHTTP:
		return c
	case ModeWS:
		return ws
	case ModeAuto:
		return &autoSink{ws: ws, http: c, logger: logger}
	default:
		return &LogSink{logger: logger}
	}
}

// LogSink records notifications in the log instead of delivering them.
type LogSink struct{ logger *zap.Logger }

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (l *LogSink) Notify(_ context.Context, recipient, message string) error {
	l.logger.Info("notify_dryrun", zap.String("recipient", recipient), zap.Int("len", len(message)))
	return nil
}

type autoSink struct {
	ws     *WSClient
	http   *HTTPClient
	logger *zap.Logger
}

func (a *autoSink) Notify(ctx context.Context, recipient, message string) error {
	if a.ws != nil && a.ws.Connected() {
		err := a.ws.Notify(ctx, recipient, message)
		if err == nil {
			return nil
		}
		a.logger.Warn("notify_fallback", zap.String("recipient", recipient), zap.Error(err))
	}
	if a.http == nil {
		return errors.New("http notifier not available")
	}
	return a.http.Notify(ctx, recipient, message)
}
