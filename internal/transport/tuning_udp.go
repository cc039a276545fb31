package transport

import (
	"net"
)

const (
	minUDPBuffer = 256 * 1024
	maxUDPBuffer = 64 * 1024 * 1024
)

// UDPTuneResult records what was requested from the kernel and how it went.
type UDPTuneResult struct {
	Requested int
	Status    string
	Err       string
}

// TuneUDPReadBuffer asks the kernel for a larger receive buffer on conn.
// Failure is reported, not returned.
func TuneUDPReadBuffer(conn *net.UDPConn, size int) UDPTuneResult {
	result := UDPTuneResult{
		Requested: clampUDPBuffer(size),
		Status:    StatusOK,
	}
	if conn == nil {
		result.Status = StatusNA
		result.Err = "no access to underlying UDPConn"
		return result
	}
	if err := conn.SetReadBuffer(result.Requested); err != nil {
		result.Status = StatusDenied
		result.Err = "read: " + err.Error()
	}
	return result
}

func clampUDPBuffer(n int) int {
	if n < minUDPBuffer {
		return minUDPBuffer
	}
	if n > maxUDPBuffer {
		return maxUDPBuffer
	}
	return n
}
