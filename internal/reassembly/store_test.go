package reassembly

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/sheerbytes/udprecv/pkg/packet"
)

func fileSet(id uint8, name string, chunks ...string) []packet.Packet {
	out := []packet.Packet{packet.Header{ID: id, Name: name}}
	for i, c := range chunks {
		out = append(out, packet.Data{
			ID:      id,
			Index:   uint16(i),
			Last:    i == len(chunks)-1,
			Payload: []byte(c),
		})
	}
	return out
}

func mustApply(t *testing.T, s *Store, p packet.Packet) {
	t.Helper()
	if err := s.Apply(p); err != nil {
		t.Fatalf("Apply(%+v) error: %v", p, err)
	}
}

func TestApplyCreatesGroupLazily(t *testing.T) {
	s := NewStore()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d groups", s.Len())
	}

	mustApply(t, s, packet.Data{ID: 4, Index: 2, Payload: []byte("x")})

	g, ok := s.Group(4)
	if !ok {
		t.Fatal("expected group 4 to exist")
	}
	if _, ok := g.Name(); ok {
		t.Fatal("expected no name before header")
	}
	if _, ok := g.Expected(); ok {
		t.Fatal("expected no chunk count before last chunk")
	}
	if g.ChunkCount() != 1 {
		t.Fatalf("expected 1 chunk, got %d", g.ChunkCount())
	}
}

func TestHeaderOverwritesName(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Header{ID: 1, Name: "a.txt"})
	mustApply(t, s, packet.Header{ID: 1, Name: "b.txt"})

	g, _ := s.Group(1)
	if name, ok := g.Name(); !ok || name != "b.txt" {
		t.Fatalf("expected latest name b.txt, got %q (set=%v)", name, ok)
	}
}

func TestLastChunkSetsExpected(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Data{ID: 1, Index: 4, Last: true})

	g, _ := s.Group(1)
	if n, ok := g.Expected(); !ok || n != 5 {
		t.Fatalf("expected 5 chunks, got %d (set=%v)", n, ok)
	}

	mustApply(t, s, packet.Data{ID: 1, Index: 2, Last: true})
	if n, _ := g.Expected(); n != 3 {
		t.Fatalf("expected later last chunk to win with 3, got %d", n)
	}
}

func TestDuplicateChunkLastWriteWins(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Header{ID: 2, Name: "dup.bin"})
	mustApply(t, s, packet.Data{ID: 2, Index: 0, Payload: []byte("first")})
	mustApply(t, s, packet.Data{ID: 2, Index: 1, Last: true, Payload: []byte("-tail")})
	mustApply(t, s, packet.Data{ID: 2, Index: 0, Payload: []byte("second")})

	g, _ := s.Group(2)
	if g.ChunkCount() != 2 {
		t.Fatalf("expected 2 chunks, got %d", g.ChunkCount())
	}
	if got := string(g.Assemble()); got != "second-tail" {
		t.Fatalf("expected second-tail, got %q", got)
	}
	if s.BufferedBytes() != int64(len("second-tail")) {
		t.Fatalf("expected buffered bytes %d, got %d", len("second-tail"), s.BufferedBytes())
	}
	if g.Size() != s.BufferedBytes() {
		t.Fatalf("group size %d does not match store %d", g.Size(), s.BufferedBytes())
	}
}

func TestOutOfOrderAssemblesSameBytes(t *testing.T) {
	chunks := []string{"alpha ", "beta ", "gamma ", "delta"}

	inOrder := NewStore()
	for _, p := range fileSet(1, "f", chunks...) {
		mustApply(t, inOrder, p)
	}

	reversed := NewStore()
	set := fileSet(1, "f", chunks...)
	for i := len(set) - 1; i >= 0; i-- {
		mustApply(t, reversed, set[i])
	}

	a, _ := inOrder.Group(1)
	b, _ := reversed.Group(1)
	if !bytes.Equal(a.Assemble(), b.Assemble()) {
		t.Fatalf("assembled output differs: %q vs %q", a.Assemble(), b.Assemble())
	}
	if string(b.Assemble()) != "alpha beta gamma delta" {
		t.Fatalf("unexpected assembled output %q", b.Assemble())
	}
}

func TestAssembleSortsNumerically(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Data{ID: 0, Index: 256, Payload: []byte("c")})
	mustApply(t, s, packet.Data{ID: 0, Index: 2, Payload: []byte("b")})
	mustApply(t, s, packet.Data{ID: 0, Index: 0, Payload: []byte("a")})

	g, _ := s.Group(0)
	if got := string(g.Assemble()); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestGroupsSortedByID(t *testing.T) {
	s := NewStore()
	for _, id := range []uint8{200, 3, 77} {
		mustApply(t, s, packet.Header{ID: id, Name: "x"})
	}
	groups := s.Groups()
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].ID() != 3 || groups[1].ID() != 77 || groups[2].ID() != 200 {
		t.Fatalf("unexpected order: %d %d %d", groups[0].ID(), groups[1].ID(), groups[2].ID())
	}
}

func TestBufferLimit(t *testing.T) {
	s := NewStore(WithMaxBufferedBytes(8))
	mustApply(t, s, packet.Data{ID: 1, Index: 0, Payload: []byte("12345")})

	err := s.Apply(packet.Data{ID: 2, Index: 0, Payload: []byte("6789")})
	if !errors.Is(err, ErrBufferLimit) {
		t.Fatalf("expected ErrBufferLimit, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected rejected packet to leave store unchanged, got %d groups", s.Len())
	}
	if s.BufferedBytes() != 5 {
		t.Fatalf("expected 5 buffered bytes, got %d", s.BufferedBytes())
	}

	// Replacing a chunk with a smaller payload frees room.
	mustApply(t, s, packet.Data{ID: 1, Index: 0, Payload: []byte("1")})
	mustApply(t, s, packet.Data{ID: 2, Index: 0, Payload: []byte("6789")})
	if s.BufferedBytes() != 5 {
		t.Fatalf("expected 5 buffered bytes, got %d", s.BufferedBytes())
	}
}

func TestUnboundedByDefault(t *testing.T) {
	s := NewStore()
	big := make([]byte, 1<<20)
	for i := 0; i < 8; i++ {
		mustApply(t, s, packet.Data{ID: 1, Index: uint16(i), Payload: big})
	}
	if s.BufferedBytes() != 8<<20 {
		t.Fatalf("expected %d buffered bytes, got %d", 8<<20, s.BufferedBytes())
	}
}

func TestDoneOnlyWhenAllGroupsComplete(t *testing.T) {
	var all []packet.Packet
	all = append(all, fileSet(1, "one.txt", "a", "b", "c")...)
	all = append(all, fileSet(2, "two.txt", "d")...)
	all = append(all, fileSet(3, "three.txt", "e", "f")...)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		order := rng.Perm(len(all))
		s := NewStore()
		for i, idx := range order {
			mustApply(t, s, all[idx])
			done := s.Done(3)
			last := i == len(order)-1
			if done != last {
				t.Fatalf("round %d: Done=%v after %d/%d packets", round, done, i+1, len(order))
			}
		}
	}
}

func TestDoneRequiresName(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Data{ID: 1, Index: 0, Last: true, Payload: []byte("x")})
	if Done(s, 1) {
		t.Fatal("expected not done without header")
	}
	mustApply(t, s, packet.Header{ID: 1, Name: "x"})
	if !Done(s, 1) {
		t.Fatal("expected done after header")
	}
}

func TestDoneRequiresExactFileCount(t *testing.T) {
	s := NewStore()
	for _, p := range fileSet(1, "a", "x") {
		mustApply(t, s, p)
	}
	for _, p := range fileSet(2, "b", "y") {
		mustApply(t, s, p)
	}
	if Done(s, 3) {
		t.Fatal("expected not done with 2 of 3 files")
	}
	if !Done(s, 2) {
		t.Fatal("expected done with 2 of 2 files")
	}
	if Done(s, 1) {
		t.Fatal("expected not done when more files than expected arrived")
	}
	if Done(nil, 0) {
		t.Fatal("expected nil store to never be done")
	}
}

func TestDoneWithMissingMiddleChunk(t *testing.T) {
	s := NewStore()
	mustApply(t, s, packet.Header{ID: 1, Name: "gap"})
	mustApply(t, s, packet.Data{ID: 1, Index: 0})
	mustApply(t, s, packet.Data{ID: 1, Index: 2, Last: true})
	if Done(s, 1) {
		t.Fatal("expected not done with chunk 1 missing")
	}
	mustApply(t, s, packet.Data{ID: 1, Index: 1})
	if !Done(s, 1) {
		t.Fatal("expected done once chunk 1 arrives")
	}
}
