package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WSClient writes frames over a single gateway WebSocket. The connection is
// dialed lazily and redialed after a failed write; writes are serialized.
type WSClient struct {
	wsURL   string
	headers HeaderProvider

	mu   sync.Mutex
	conn *websocket.Conn

	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func NewWSClient(wsURL string, headers HeaderProvider) *WSClient {
	return &WSClient{
		wsURL:        strings.TrimSpace(wsURL),
		headers:      headers,
		dialTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

// Connect dials the gateway if not already connected.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connectLocked(ctx)
}

func (w *WSClient) connectLocked(ctx context.Context) error {
	if w.conn != nil {
		return nil
	}
	if w.wsURL == "" {
		return errors.New("ws notifier not configured")
	}
	dialCtx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	// Egress only: let the library handle control frames from the peer.
	conn.CloseRead(context.Background())
	w.conn = conn
	return nil
}

// Connected reports whether a connection is currently open.
func (w *WSClient) Connected() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

func (w *WSClient) Notify(ctx context.Context, recipient, message string) error {
	if w == nil {
		return errors.New("ws notifier not available")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.connectLocked(ctx); err != nil {
		return err
	}
	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, w.writeTimeout)
		defer cancel()
	}
	frame := textFrame(recipient, message)
	if err := wsjson.Write(wctx, w.conn, &frame); err != nil {
		_ = w.conn.Close(websocket.StatusGoingAway, "write failure")
		w.conn = nil
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

func (w *WSClient) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close(websocket.StatusNormalClosure, "close")
	w.conn = nil
	return err
}

func (w *WSClient) buildHeaders() http.Header {
	hdr := http.Header{}
	if w.headers == nil {
		return hdr
	}
	for k, v := range w.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
