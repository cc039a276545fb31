package progress

import (
	"sync"
	"time"
)

// Stats represents a point-in-time snapshot of receive progress.
type Stats struct {
	Packets   int64
	Bytes     int64
	RateBps   float64
	StartedAt time.Time
	Elapsed   time.Duration
}

// Meter counts received datagrams and bytes and keeps a smoothed rate.
type Meter struct {
	mu        sync.Mutex
	packets   int64
	bytes     int64
	startedAt time.Time
	lastAt    time.Time
	lastBytes int64
	rateBps   float64
	alpha     float64
	now       func() time.Time
}

// NewMeter returns a meter with a default smoothing factor.
func NewMeter() *Meter {
	return NewMeterWithNow(time.Now)
}

// NewMeterWithNow returns a meter with a custom time source (for tests).
func NewMeterWithNow(now func() time.Time) *Meter {
	if now == nil {
		now = time.Now
	}
	return &Meter{alpha: 0.2, now: now}
}

// Start resets the meter and marks the start time.
func (m *Meter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packets = 0
	m.bytes = 0
	m.startedAt = m.now()
	m.lastAt = m.startedAt
	m.lastBytes = 0
	m.rateBps = 0
}

// Observe records one datagram of n bytes.
func (m *Meter) Observe(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if m.startedAt.IsZero() {
		m.startedAt = now
		m.lastAt = now
	}
	m.packets++
	if n > 0 {
		m.bytes += int64(n)
	}
	deltaTime := now.Sub(m.lastAt).Seconds()
	if deltaTime > 0 {
		inst := float64(m.bytes-m.lastBytes) / deltaTime
		if m.rateBps == 0 {
			m.rateBps = inst
		} else {
			m.rateBps = m.alpha*inst + (1-m.alpha)*m.rateBps
		}
		m.lastAt = now
		m.lastBytes = m.bytes
	}
}

// Snapshot returns current progress stats.
func (m *Meter) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{
		Packets:   m.packets,
		Bytes:     m.bytes,
		RateBps:   m.rateBps,
		StartedAt: m.startedAt,
	}
	if !m.startedAt.IsZero() {
		stats.Elapsed = m.now().Sub(m.startedAt)
	}
	return stats
}
