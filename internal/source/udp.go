package source

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sheerbytes/udprecv/internal/transport"
)

// UDP receives datagrams on a connected UDP socket.
type UDP struct {
	conn    *net.UDPConn
	buf     []byte
	timeout time.Duration
}

// DialUDP binds opts.ListenAddr, connects to opts.PeerAddr and sends the
// ready signal.
func DialUDP(ctx context.Context, opts Options) (*UDP, error) {
	logger := opts.logger()
	laddr, err := net.ResolveUDPAddr("udp", opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", opts.PeerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve peer address: %w", err)
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp: %w", err)
	}

	if opts.ReadBufferBytes > 0 {
		res := transport.TuneUDPReadBuffer(conn, opts.ReadBufferBytes)
		logger.Debug("udp read buffer tuned",
			"requested", transport.FormatBytes(int64(res.Requested)),
			"status", res.Status,
			"error", res.Err)
	}

	if _, err := conn.Write(ReadySignal()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send ready signal: %w", err)
	}
	logger.Info("udp source ready", "local_addr", conn.LocalAddr(), "peer", raddr)

	return &UDP{
		conn:    conn,
		buf:     make([]byte, MaxDatagram),
		timeout: opts.Timeout,
	}, nil
}

// Next reads one datagram.
func (u *UDP) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline := time.Time{}
	if u.timeout > 0 {
		deadline = time.Now().Add(u.timeout)
	}
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	// Unblock the read when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = u.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, err := u.conn.Read(u.buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, u.timeout)
		}
		return nil, fmt.Errorf("read datagram: %w", err)
	}
	return u.buf[:n], nil
}

// LocalAddr returns the bound address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Close closes the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
