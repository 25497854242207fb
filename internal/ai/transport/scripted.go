package transport

import (
	"context"
	"sync"
)

// Scripted replays a fixed chunk sequence. It backs tests and the CLI
// replay driver, and records the requests it receives for assertions.
type Scripted struct {
	mu       sync.Mutex
	scripts  [][]Chunk
	requests []Request

	// FragmentSize splits tool-call argument deltas into pieces of at
	// most this many bytes, exercising partial-JSON handling. Zero
	// replays deltas as scripted.
	FragmentSize int
}

// NewScripted creates a scripted transport. Each call to Stream
// consumes the next script; streaming past the last script replays the
// final one.
func NewScripted(scripts ...[]Chunk) *Scripted {
	return &Scripted{scripts: scripts}
}

// Requests returns the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Stream implements Transport.
func (s *Scripted) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	var script []Chunk
	if idx >= 0 {
		script = s.scripts[idx]
	}
	frag := s.FragmentSize
	s.mu.Unlock()

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, c := range script {
			for _, piece := range fragment(c, frag) {
				if !emit(ctx, out, piece) {
					return
				}
			}
		}
	}()
	return out, nil
}

// fragment splits a tool delta chunk into smaller deltas.
func fragment(c Chunk, size int) []Chunk {
	if size <= 0 || c.Kind != ChunkToolDelta || len(c.ArgumentDelta) <= size {
		return []Chunk{c}
	}
	var out []Chunk
	delta := c.ArgumentDelta
	for len(delta) > 0 {
		n := size
		if n > len(delta) {
			n = len(delta)
		}
		piece := c
		piece.ArgumentDelta = delta[:n]
		out = append(out, piece)
		delta = delta[n:]
	}
	return out
}
