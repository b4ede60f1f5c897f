package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrNotConnected = errors.New("websocket not connected")

// WebSocket is a write-only event stream that redials in the background
// after the connection drops.
type WebSocket struct {
	url    string
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	maxReconnect int
	writeTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWebSocket(url string, maxReconnect int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocket{
		url:          url,
		logger:       logger,
		maxReconnect: maxReconnect,
		writeTimeout: 5 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}
	ws.attach(conn)
	return nil
}

// attach installs conn and watches its read side for closure.
func (ws *WebSocket) attach(conn *websocket.Conn) {
	readCtx := conn.CloseRead(context.Background())

	ws.mu.Lock()
	ws.conn = conn
	ws.connected = true
	ws.mu.Unlock()

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		select {
		case <-ws.stopCh:
			return
		case <-readCtx.Done():
		}
		ws.mu.Lock()
		if ws.conn == conn {
			ws.conn = nil
			ws.connected = false
		}
		ws.mu.Unlock()
		ws.logger.Warn("ws_disconnected", zap.String("url", ws.url))
		ws.reconnect()
	}()
}

func (ws *WebSocket) reconnect() {
	for attempt := 1; attempt <= ws.maxReconnect; attempt++ {
		select {
		case <-ws.stopCh:
			return
		case <-time.After(backoff(attempt)):
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, _, err := websocket.Dial(ctx, ws.url, &websocket.DialOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		cancel()
		if err != nil {
			continue
		}
		ws.logger.Info("ws_reconnected", zap.Int("attempt", attempt))
		ws.attach(conn)
		return
	}
}

func (ws *WebSocket) Connected() bool {
	if ws == nil {
		return false
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.connected
}

// Write sends v as a JSON text frame. Writes are serialised.
func (ws *WebSocket) Write(ctx context.Context, v any) error {
	if ws == nil {
		return ErrNotConnected
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.connected || ws.conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, ws.conn, v)
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.mu.Lock()
	conn := ws.conn
	ws.conn, ws.connected = nil, false
	ws.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
