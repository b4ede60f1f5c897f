package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Egress interface {
	Send(ctx context.Context, ev Event) error
}

// NewEgress picks a transport. "auto" prefers a connected WebSocket and falls
// back to the webhook once per event. With neither transport configured every
// send is a no-op.
func NewEgress(mode string, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil && ws == nil {
		return nopEgress{}
	}
	switch mode {
	case "ws":
		return wsEgress{ws: ws}
	case "http":
		return httpEgress{c: c}
	default:
		return autoEgress{ws: ws, c: c, logger: logger}
	}
}

type nopEgress struct{}

func (nopEgress) Send(context.Context, Event) error { return nil }

type httpEgress struct{ c *Client }

func (h httpEgress) Send(ctx context.Context, ev Event) error {
	if h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.Post(ctx, ev)
}

type wsEgress struct{ ws *WebSocket }

func (w wsEgress) Send(ctx context.Context, ev Event) error {
	return w.ws.Write(ctx, ev)
}

type autoEgress struct {
	ws     *WebSocket
	c      *Client
	logger *zap.Logger
}

func (a autoEgress) Send(ctx context.Context, ev Event) error {
	if a.ws.Connected() {
		err := a.ws.Write(ctx, ev)
		if err == nil {
			return nil
		}
		if a.c == nil {
			return err
		}
		a.logger.Warn("egress_fallback", zap.String("type", ev.Type), zap.Error(err))
	}
	if a.c == nil {
		return ErrNotConnected
	}
	return a.c.Post(ctx, ev)
}
