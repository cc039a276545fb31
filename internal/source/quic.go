package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/sheerbytes/udprecv/internal/quictransport"
	"github.com/sheerbytes/udprecv/internal/transport"
)

const quicConnWindow = 8 * 1024 * 1024

// QUIC receives packets as QUIC unreliable datagrams.
type QUIC struct {
	pconn   *net.UDPConn
	conn    *quic.Conn
	timeout time.Duration
}

// DialQUIC establishes a QUIC connection to opts.PeerAddr with datagrams
// enabled and sends the ready signal as a datagram.
func DialQUIC(ctx context.Context, opts Options) (*QUIC, error) {
	logger := opts.logger()
	laddr, err := net.ResolveUDPAddr("udp", opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", opts.PeerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve peer address: %w", err)
	}
	pconn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp: %w", err)
	}
	if opts.ReadBufferBytes > 0 {
		res := transport.TuneUDPReadBuffer(pconn, opts.ReadBufferBytes)
		logger.Debug("udp read buffer tuned", "status", res.Status, "error", res.Err)
	}

	qcfg, tune := transport.BuildDatagramConfig(quictransport.DefaultQUICConfig(), quicConnWindow, 0)
	logger.Debug("quic config", "conn_window", transport.FormatBytes(int64(tune.ConnWin)), "idle_timeout", tune.IdleTimeout)

	conn, err := quictransport.Dial(ctx, pconn, raddr, qcfg, logger)
	if err != nil {
		pconn.Close()
		return nil, fmt.Errorf("quic dial: %w", err)
	}
	if err := conn.SendDatagram(ReadySignal()); err != nil {
		_ = conn.CloseWithError(0, "ready failed")
		pconn.Close()
		return nil, fmt.Errorf("send ready signal: %w", err)
	}
	logger.Info("quic source ready", "local_addr", pconn.LocalAddr(), "peer", raddr)

	return &QUIC{pconn: pconn, conn: conn, timeout: opts.Timeout}, nil
}

// Next waits for one datagram.
func (q *QUIC) Next(ctx context.Context) ([]byte, error) {
	rctx := ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	data, err := q.conn.ReceiveDatagram(rctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, q.timeout)
		}
		return nil, fmt.Errorf("receive datagram: %w", err)
	}
	return data, nil
}

// Close closes the QUIC connection and the underlying socket.
func (q *QUIC) Close() error {
	err := q.conn.CloseWithError(0, "done")
	if cerr := q.pconn.Close(); err == nil {
		err = cerr
	}
	return err
}
