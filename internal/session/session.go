// Package session runs one receive session: pull datagrams from a source,
// decode and reassemble them, and flush the files once every expected file
// is complete.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sheerbytes/udprecv/internal/progress"
	"github.com/sheerbytes/udprecv/internal/reassembly"
	"github.com/sheerbytes/udprecv/internal/sink"
	"github.com/sheerbytes/udprecv/internal/source"
	"github.com/sheerbytes/udprecv/internal/transport"
	"github.com/sheerbytes/udprecv/pkg/packet"
)

// Config holds the per-session parameters.
type Config struct {
	ExpectedFiles    int
	MaxBufferedBytes int64 // 0 = unbounded
}

// Summary describes a finished (or aborted) session.
type Summary struct {
	Packets int64
	Bytes   int64
	Elapsed time.Duration
	RateBps float64
	Files   []sink.Written
}

// Session owns the reassembly state for one transfer. It is not safe for
// concurrent use.
type Session struct {
	cfg    Config
	src    source.Source
	dst    sink.Sink
	store  *reassembly.Store
	logger *slog.Logger
	meter  *progress.Meter
	dots   *progress.Dots
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithProgress prints one dot per datagram to w.
func WithProgress(w io.Writer) Option {
	return func(s *Session) {
		s.dots = progress.NewDots(w)
	}
}

// WithMeter replaces the byte meter (tests inject a fixed clock).
func WithMeter(m *progress.Meter) Option {
	return func(s *Session) {
		s.meter = m
	}
}

// New returns a session reading from src and writing to dst.
func New(src source.Source, dst sink.Sink, cfg Config, opts ...Option) (*Session, error) {
	if src == nil || dst == nil {
		return nil, errors.New("session needs a source and a sink")
	}
	if cfg.ExpectedFiles < 1 {
		return nil, fmt.Errorf("expected files must be positive, got %d", cfg.ExpectedFiles)
	}
	s := &Session{
		cfg:    cfg,
		src:    src,
		dst:    dst,
		store:  reassembly.NewStore(reassembly.WithMaxBufferedBytes(cfg.MaxBufferedBytes)),
		logger: slog.New(slog.DiscardHandler),
		meter:  progress.NewMeter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store exposes the reassembly state.
func (s *Session) Store() *reassembly.Store {
	return s.store
}

// Run receives until every expected file is complete, then writes them.
// Any decode, buffer, source or storage error aborts the session.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	s.meter.Start()
	s.logger.Info("session started", "expected_files", s.cfg.ExpectedFiles)

	for seq := int64(1); !s.store.Done(s.cfg.ExpectedFiles); seq++ {
		raw, err := s.src.Next(ctx)
		if err != nil {
			s.dots.Finish()
			return s.summary(nil), fmt.Errorf("receive datagram %d: %w", seq, err)
		}
		s.meter.Observe(len(raw))
		s.dots.Tick()

		p, err := packet.Decode(raw)
		if err != nil {
			s.dots.Finish()
			return s.summary(nil), fmt.Errorf("datagram %d: %w", seq, err)
		}
		if err := s.apply(p); err != nil {
			s.dots.Finish()
			return s.summary(nil), fmt.Errorf("datagram %d: %w", seq, err)
		}
	}
	s.dots.Finish()

	written, err := sink.WriteAll(s.store, s.dst)
	for _, w := range written {
		s.logger.Info("file written",
			"file_id", w.ID,
			"name", w.Name,
			"size", transport.FormatBytes(w.Size),
			"blake3", w.Digest)
	}
	sum := s.summary(written)
	if err != nil {
		return sum, err
	}

	s.logger.Info("session complete",
		"files", len(written),
		"packets", sum.Packets,
		"bytes", transport.FormatBytes(sum.Bytes),
		"elapsed", sum.Elapsed.Round(time.Millisecond),
		"rate", transport.FormatRate(sum.RateBps))
	return sum, nil
}

func (s *Session) apply(p packet.Packet) error {
	g, existed := s.store.Group(p.FileID())
	wasComplete := existed && g.Complete()

	switch v := p.(type) {
	case packet.Header:
		if existed {
			if prev, ok := g.Name(); ok && prev != v.Name {
				s.logger.Debug("header renamed file", "file_id", v.ID, "old", prev, "new", v.Name)
			}
		}
		s.logger.Debug("header", "file_id", v.ID, "name", v.Name)
	case packet.Data:
		s.logger.Debug("data", "file_id", v.ID, "index", v.Index, "last", v.Last, "len", len(v.Payload))
	}

	if err := s.store.Apply(p); err != nil {
		return err
	}

	if !existed {
		g, _ = s.store.Group(p.FileID())
	}
	if !wasComplete && g.Complete() {
		name, _ := g.Name()
		s.logger.Info("file complete",
			"file_id", g.ID(),
			"name", name,
			"chunks", g.ChunkCount(),
			"size", transport.FormatBytes(g.Size()))
	}
	return nil
}

func (s *Session) summary(files []sink.Written) Summary {
	stats := s.meter.Snapshot()
	return Summary{
		Packets: stats.Packets,
		Bytes:   stats.Bytes,
		Elapsed: stats.Elapsed,
		RateBps: stats.RateBps,
		Files:   files,
	}
}
