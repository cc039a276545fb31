package reassembly

import (
	"slices"
)

// FileGroup accumulates the reassembly state for one file id.
type FileGroup struct {
	id       uint8
	name     string
	hasName  bool
	expected int
	hasLast  bool
	chunks   map[uint16][]byte
	size     int64
}

func newFileGroup(id uint8) *FileGroup {
	return &FileGroup{
		id:     id,
		chunks: make(map[uint16][]byte),
	}
}

// ID returns the file id of the group.
func (g *FileGroup) ID() uint8 {
	return g.id
}

// Name returns the destination name and whether a header has been seen.
func (g *FileGroup) Name() (string, bool) {
	return g.name, g.hasName
}

// Expected returns the chunk count announced by the last-flagged chunk.
func (g *FileGroup) Expected() (int, bool) {
	return g.expected, g.hasLast
}

// ChunkCount returns the number of distinct chunk indexes buffered.
func (g *FileGroup) ChunkCount() int {
	return len(g.chunks)
}

// Size returns the total number of buffered payload bytes.
func (g *FileGroup) Size() int64 {
	return g.size
}

// Complete reports whether the group has a name, a known chunk count, and
// exactly that many chunks.
func (g *FileGroup) Complete() bool {
	return g.hasName && g.hasLast && len(g.chunks) == g.expected
}

// Assemble concatenates the buffered chunks in ascending index order.
func (g *FileGroup) Assemble() []byte {
	indexes := make([]uint16, 0, len(g.chunks))
	for idx := range g.chunks {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	out := make([]byte, 0, g.size)
	for _, idx := range indexes {
		out = append(out, g.chunks[idx]...)
	}
	return out
}

func (g *FileGroup) setName(name string) {
	g.name = name
	g.hasName = true
}

// putChunk stores payload at idx and returns the change in buffered bytes.
func (g *FileGroup) putChunk(idx uint16, payload []byte) int64 {
	delta := g.chunkDelta(idx, payload)
	g.chunks[idx] = payload
	g.size += delta
	return delta
}

func (g *FileGroup) chunkDelta(idx uint16, payload []byte) int64 {
	delta := int64(len(payload))
	if prev, ok := g.chunks[idx]; ok {
		delta -= int64(len(prev))
	}
	return delta
}

func (g *FileGroup) setExpected(n int) {
	g.expected = n
	g.hasLast = true
}
