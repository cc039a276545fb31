// Package source supplies raw datagrams to the receive loop. Every
// implementation first sends a ready signal to the peer, then yields one
// protocol packet per Next call.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const (
	// ReadySize is the length of the zero-filled ready signal.
	ReadySize = 1028
	// MaxDatagram is the largest UDP payload accepted.
	MaxDatagram = 65535
)

// Kinds accepted by Open.
const (
	KindUDP       = "udp"
	KindQUIC      = "quic"
	KindWebSocket = "ws"
)

// ErrTimeout indicates no datagram arrived within the configured timeout.
var ErrTimeout = errors.New("receive timeout")

// Source yields raw datagrams from a peer.
type Source interface {
	// Next blocks until the next datagram arrives. The returned slice may
	// be reused by the following call.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Options configures a Source.
type Options struct {
	ListenAddr      string
	PeerAddr        string
	PeerURL         string
	ReadBufferBytes int
	Timeout         time.Duration // 0 = wait forever
	Logger          *slog.Logger
}

// ReadySignal returns the datagram sent to the peer to start a transfer.
func ReadySignal() []byte {
	return make([]byte, ReadySize)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Open connects a Source of the given kind.
func Open(ctx context.Context, kind string, opts Options) (Source, error) {
	switch kind {
	case KindUDP:
		return DialUDP(ctx, opts)
	case KindQUIC:
		return DialQUIC(ctx, opts)
	case KindWebSocket:
		return DialWebSocket(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// isTimeout reports whether err is a network deadline expiry.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
