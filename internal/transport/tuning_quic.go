package transport

import (
	"time"

	"github.com/quic-go/quic-go"
)

const (
	defaultInitialConnWindow = 2 * 1024 * 1024
	minQuicConnWindow        = 1 * 1024 * 1024
	maxQuicConnWindow        = 1024 * 1024 * 1024
)

// QuicTuneResult records the applied QUIC settings.
type QuicTuneResult struct {
	ConnWin     int
	IdleTimeout time.Duration
	Status      string
}

// BuildDatagramConfig copies base and enables unreliable datagrams, which
// carry the file packets one-to-one. A zero idle timeout keeps quic-go's
// default.
func BuildDatagramConfig(base *quic.Config, connWin int, idleTimeout time.Duration) (*quic.Config, QuicTuneResult) {
	cfg := &quic.Config{}
	if base != nil {
		copyCfg := *base
		cfg = &copyCfg
	}

	conn := clampQuicConnWindow(connWin)
	initialConn := defaultInitialConnWindow
	if initialConn > conn {
		initialConn = conn
	}
	cfg.EnableDatagrams = true
	cfg.InitialConnectionReceiveWindow = uint64(initialConn)
	cfg.MaxConnectionReceiveWindow = uint64(conn)
	if idleTimeout > 0 {
		cfg.MaxIdleTimeout = idleTimeout
	}

	return cfg, QuicTuneResult{
		ConnWin:     conn,
		IdleTimeout: cfg.MaxIdleTimeout,
		Status:      StatusOK,
	}
}

func clampQuicConnWindow(n int) int {
	if n < minQuicConnWindow {
		return minQuicConnWindow
	}
	if n > maxQuicConnWindow {
		return maxQuicConnWindow
	}
	return n
}
