package sink

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sheerbytes/udprecv/internal/reassembly"
	"github.com/zeebo/blake3"
)

// ErrMissingName indicates a flush of a group that never received a header.
// WriteAll is only meant to run once the store is done, so this signals a
// broken caller rather than bad input.
var ErrMissingName = errors.New("file group has no name")

// Sink stores one reassembled file.
type Sink interface {
	// WriteFile creates or truncates the named file and writes data in full.
	WriteFile(name string, data []byte) error
}

// DirSink writes files relative to Root. An empty Root means the current
// working directory.
type DirSink struct {
	Root string
}

// WriteFile creates or truncates Root/name and writes data.
func (d DirSink) WriteFile(name string, data []byte) error {
	root := d.Root
	if root == "" {
		root = "."
	}
	path := filepath.Join(root, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// Written describes one file handed to a Sink.
type Written struct {
	ID     uint8
	Name   string
	Size   int64
	Digest string // BLAKE3-256, hex
}

// WriteAll assembles every group in s in file-id order and writes it to dst.
// The first failure stops the flush; files already written are left in
// place. The returned slice lists the files written before any failure.
func WriteAll(s *reassembly.Store, dst Sink) ([]Written, error) {
	groups := s.Groups()
	out := make([]Written, 0, len(groups))
	for _, g := range groups {
		name, ok := g.Name()
		if !ok {
			return out, fmt.Errorf("file %d: %w", g.ID(), ErrMissingName)
		}
		data := g.Assemble()
		if err := dst.WriteFile(name, data); err != nil {
			return out, fmt.Errorf("write file %d (%s): %w", g.ID(), name, err)
		}
		sum := blake3.Sum256(data)
		out = append(out, Written{
			ID:     g.ID(),
			Name:   name,
			Size:   int64(len(data)),
			Digest: hex.EncodeToString(sum[:]),
		})
	}
	return out, nil
}
