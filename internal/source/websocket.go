package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

var dialer = websocket.Dialer{
	HandshakeTimeout: 5 * time.Second,
	ReadBufferSize:   MaxDatagram,
}

// WebSocket receives packets as binary WebSocket messages, one packet per
// message. Text and control messages are ignored.
type WebSocket struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// DialWebSocket connects to opts.PeerURL and sends the ready signal as one
// binary message.
func DialWebSocket(ctx context.Context, opts Options) (*WebSocket, error) {
	conn, resp, err := dialer.DialContext(ctx, opts.PeerURL, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket upgrade failed (%d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket upgrade failed (%d)", resp.StatusCode)
		}
		return nil, err
	}
	conn.SetReadLimit(MaxDatagram)

	if err := conn.WriteMessage(websocket.BinaryMessage, ReadySignal()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send ready signal: %w", err)
	}
	opts.logger().Info("websocket source ready", "peer_url", opts.PeerURL)

	return &WebSocket{conn: conn, timeout: opts.Timeout}, nil
}

// Next reads the next binary message.
func (w *WebSocket) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		deadline := time.Time{}
		if w.timeout > 0 {
			deadline = time.Now().Add(w.timeout)
		}
		if err := w.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		// Checked after the deadline is set so a concurrent cancel is not lost.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		messageType, message, err := w.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if isTimeout(err) {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, w.timeout)
			}
			return nil, fmt.Errorf("read message: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return message, nil
	}
}

// Close sends a close frame and closes the connection.
func (w *WebSocket) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}
