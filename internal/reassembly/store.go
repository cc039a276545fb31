package reassembly

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sheerbytes/udprecv/pkg/packet"
)

// ErrBufferLimit indicates that applying a chunk would exceed the
// configured buffered-bytes limit.
var ErrBufferLimit = errors.New("buffered bytes limit exceeded")

// Store collects FileGroups keyed by file id. It only ever grows: no file
// id or chunk is removed once applied. A Store is not safe for concurrent
// use.
type Store struct {
	groups   map[uint8]*FileGroup
	buffered int64
	maxBytes int64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBufferedBytes caps the total buffered payload bytes. Zero or a
// negative value leaves the store unbounded.
func WithMaxBufferedBytes(n int64) Option {
	return func(s *Store) {
		s.maxBytes = n
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{groups: make(map[uint8]*FileGroup)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply folds one packet into the store. Headers set (or replace) the
// group name. Data packets insert (or replace) the chunk at their index;
// a last-flagged chunk sets the expected chunk count to index+1.
// Apply only fails when a buffer limit is configured and would be
// exceeded, in which case the store is left unchanged.
func (s *Store) Apply(p packet.Packet) error {
	switch v := p.(type) {
	case packet.Header:
		s.group(v.ID).setName(v.Name)
	case packet.Data:
		if s.maxBytes > 0 {
			var delta int64
			if g, ok := s.groups[v.ID]; ok {
				delta = g.chunkDelta(v.Index, v.Payload)
			} else {
				delta = int64(len(v.Payload))
			}
			if s.buffered+delta > s.maxBytes {
				return fmt.Errorf("file %d chunk %d: %w (limit %d)", v.ID, v.Index, ErrBufferLimit, s.maxBytes)
			}
		}
		g := s.group(v.ID)
		s.buffered += g.putChunk(v.Index, v.Payload)
		if v.Last {
			g.setExpected(int(v.Index) + 1)
		}
	default:
		return fmt.Errorf("unknown packet type %T", p)
	}
	return nil
}

func (s *Store) group(id uint8) *FileGroup {
	g, ok := s.groups[id]
	if !ok {
		g = newFileGroup(id)
		s.groups[id] = g
	}
	return g
}

// Len returns the number of distinct file ids seen.
func (s *Store) Len() int {
	return len(s.groups)
}

// Group returns the group for id, if any packet for it has been applied.
func (s *Store) Group(id uint8) (*FileGroup, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Groups returns all groups ordered by file id.
func (s *Store) Groups() []*FileGroup {
	out := make([]*FileGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *FileGroup) int {
		return int(a.id) - int(b.id)
	})
	return out
}

// BufferedBytes returns the total payload bytes held across all groups.
func (s *Store) BufferedBytes() int64 {
	return s.buffered
}

// Done reports whether the store holds exactly expectedFiles groups and
// every one of them is complete.
func (s *Store) Done(expectedFiles int) bool {
	return Done(s, expectedFiles)
}
