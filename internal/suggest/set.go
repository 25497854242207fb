package suggest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/draftpilot/internal/document"
)

// Errors returned by mark-set operations.
var (
	// ErrAlreadyMarked indicates a block already carries a pending mark.
	// One pending suggestion per block keeps resolution unambiguous.
	ErrAlreadyMarked = errors.New("suggest: block already has a pending mark")

	// ErrNoMarks indicates a resolution was requested with nothing pending.
	ErrNoMarks = errors.New("suggest: no pending marks")
)

// Set tracks the pending suggestion marks for one document.
// All methods are thread-safe.
type Set struct {
	mu    sync.Mutex
	doc   *document.Document
	marks []*Mark
	byBlk map[document.BlockID]*Mark
}

// NewSet creates an empty mark set bound to a document.
func NewSet(doc *document.Document) *Set {
	return &Set{
		doc:   doc,
		byBlk: make(map[document.BlockID]*Mark),
	}
}

// Add registers a pending mark. Marks resolve in registration order.
func (s *Set) Add(m *Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBlk[m.Block]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyMarked, m.Block)
	}
	s.marks = append(s.marks, m)
	s.byBlk[m.Block] = m
	return nil
}

// Refresh recomputes a mark's display spans after the marked block's
// proposed content changed (the executor appends content span by span).
func (s *Set) Refresh(id document.BlockID, proposedText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byBlk[id]
	if !ok {
		return
	}
	original := ""
	if m.Original != nil {
		original = m.Original.Text()
	}
	m.Spans = diffSpans(original, proposedText)
}

// ByBlock returns the pending mark on a block, if any.
func (s *Set) ByBlock(id document.BlockID) (*Mark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byBlk[id]
	return m, ok
}

// Pending returns the pending marks in registration order.
func (s *Set) Pending() []*Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Mark, len(s.marks))
	copy(out, s.marks)
	return out
}

// Len returns the number of pending marks.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks)
}

// Resolve accepts all pending suggestions: proposed content becomes
// final and delete-marked blocks are removed. Runs as an agent-origin
// transaction so acceptance does not enter user undo.
func (s *Set) Resolve() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.marks) == 0 {
		return ErrNoMarks
	}

	var removals []document.BlockID
	for _, m := range s.marks {
		if m.Kind == MarkDelete {
			removals = append(removals, m.Block)
		}
	}

	if len(removals) > 0 {
		tx := document.Transaction{
			Label:  "accept suggestions",
			Origin: document.OriginAgent,
			Edits:  []document.Edit{{Kind: document.EditRemove, Targets: removals}},
		}
		if _, err := s.doc.Apply(tx); err != nil {
			return fmt.Errorf("resolve marks: %w", err)
		}
	}

	s.clearLocked()
	return nil
}

// Revert rejects all pending suggestions: updated blocks are restored
// to their original state, inserted blocks are removed, and
// delete-marked blocks keep the mark's original content. Runs as an
// agent-origin transaction so rejection does not enter user undo.
func (s *Set) Revert() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.marks) == 0 {
		return ErrNoMarks
	}

	// Reverts run newest-first so inserts removed in reverse order
	// cannot invalidate earlier marks' block positions.
	var edits []document.Edit
	for i := len(s.marks) - 1; i >= 0; i-- {
		m := s.marks[i]
		switch m.Kind {
		case MarkUpdate:
			edits = append(edits, document.Edit{
				Kind:        document.EditReplace,
				Target:      m.Block,
				Content:     m.Original.Content,
				Table:       m.Original.Table,
				Props:       m.Original.Props,
				ReplaceType: m.Original.Type,
				ReplaceAll:  true,
			})
		case MarkInsert:
			edits = append(edits, document.Edit{
				Kind:    document.EditRemove,
				Targets: []document.BlockID{m.Block},
			})
		case MarkDelete:
			// Block was never removed; dropping the mark restores it.
		}
	}

	if len(edits) > 0 {
		tx := document.Transaction{
			Label:  "reject suggestions",
			Origin: document.OriginAgent,
			Edits:  edits,
		}
		if _, err := s.doc.Apply(tx); err != nil {
			return fmt.Errorf("revert marks: %w", err)
		}
	}

	s.clearLocked()
	return nil
}

// Clear drops all marks without touching the document.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Set) clearLocked() {
	s.marks = nil
	s.byBlk = make(map[document.BlockID]*Mark)
}
