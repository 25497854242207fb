package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/draftpilot/internal/document"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// entry pairs a forward transaction with its inverse.
type entry struct {
	label     string
	forward   document.Transaction
	inverse   document.Transaction
	timestamp time.Time
}

// group collects entries recorded between BeginGroup and EndGroup.
type group struct {
	name    string
	entries []*entry
}

// History manages undo/redo state for one document.
type History struct {
	mu sync.Mutex

	doc       *document.Document
	undoStack []*group
	redoStack []*group

	// Grouping state
	grouping bool
	open     *group

	maxEntries int
}

// New creates a history manager for the given document.
// maxEntries bounds the undo stack; zero or negative selects the default.
func New(doc *document.Document, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &History{
		doc:        doc,
		maxEntries: maxEntries,
	}
}

// Apply runs a transaction against the document and records it.
// Agent-origin transactions are applied but never recorded.
func (h *History) Apply(tx document.Transaction) (document.TxResult, error) {
	res, err := h.doc.Apply(tx)
	if err != nil {
		return res, err
	}
	h.Record(tx, res)
	return res, nil
}

// Record adds an already-applied transaction to the undo stack and
// clears the redo stack. Agent-origin transactions are ignored.
func (h *History) Record(tx document.Transaction, res document.TxResult) {
	if tx.Origin == document.OriginAgent {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := &entry{
		label:     tx.Label,
		forward:   tx,
		inverse:   res.Inverse,
		timestamp: time.Now(),
	}

	if h.grouping {
		h.open.entries = append(h.open.entries, e)
		return
	}

	h.pushLocked(&group{name: tx.Label, entries: []*entry{e}})
}

func (h *History) pushLocked(g *group) {
	h.undoStack = append(h.undoStack, g)
	h.redoStack = nil

	if len(h.undoStack) > h.maxEntries {
		h.undoStack = h.undoStack[len(h.undoStack)-h.maxEntries:]
	}
}

// BeginGroup starts collecting recorded transactions into one undo unit.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.grouping {
		return
	}
	h.grouping = true
	h.open = &group{name: name}
}

// EndGroup closes the current group and pushes it as a single unit.
// An empty group is discarded.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.grouping {
		return
	}
	h.grouping = false
	if len(h.open.entries) > 0 {
		h.pushLocked(h.open)
	}
	h.open = nil
}

// CancelGroup discards the current group without recording it.
// Transactions already applied still affect the document.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.grouping = false
	h.open = nil
}

// Transaction executes fn within a grouped undo context. If fn returns
// an error, the group is cancelled; otherwise it is ended normally.
func (h *History) Transaction(name string, fn func() error) error {
	h.BeginGroup(name)
	if err := fn(); err != nil {
		h.CancelGroup()
		return err
	}
	h.EndGroup()
	return nil
}

// Undo reverts the most recent undo unit.
func (h *History) Undo() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return ErrNothingToUndo
	}
	g := h.undoStack[len(h.undoStack)-1]

	// Entries undo newest-first.
	for i := len(g.entries) - 1; i >= 0; i-- {
		if _, err := h.doc.Apply(g.entries[i].inverse); err != nil {
			return err
		}
	}

	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, g)
	return nil
}

// Redo re-applies the most recently undone unit.
func (h *History) Redo() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return ErrNothingToRedo
	}
	g := h.redoStack[len(h.redoStack)-1]

	for _, e := range g.entries {
		if _, err := h.doc.Apply(e.forward); err != nil {
			return err
		}
	}

	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, g)
	return nil
}

// CanUndo reports whether an undo unit is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo reports whether a redo unit is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoDepth returns the number of undo units available.
func (h *History) UndoDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// Clear discards all undo and redo state.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.open = nil
}
