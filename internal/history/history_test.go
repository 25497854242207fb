package history

import (
	"errors"
	"testing"

	"github.com/dshills/draftpilot/internal/document"
)

func para(id, text string) *document.Block {
	return &document.Block{ID: document.BlockID(id), Type: "paragraph", Content: document.PlainText(text)}
}

func replaceTx(origin document.Origin, target, text string) document.Transaction {
	return document.Transaction{
		Label:  "replace " + target,
		Origin: origin,
		Edits: []document.Edit{{
			Kind:    document.EditReplace,
			Target:  document.BlockID(target),
			Content: document.PlainText(text),
		}},
	}
}

func newDoc(t *testing.T) *document.Document {
	t.Helper()
	d, err := document.FromBlocks(para("a", "alpha"), para("b", "beta"))
	if err != nil {
		t.Fatalf("FromBlocks failed: %v", err)
	}
	return d
}

func blockText(t *testing.T, d *document.Document, id string) string {
	t.Helper()
	b, ok := d.Block(document.BlockID(id))
	if !ok {
		t.Fatalf("block %s not found", id)
	}
	return b.Content.Text()
}

func TestUndoRedo(t *testing.T) {
	d := newDoc(t)
	h := New(d, 0)

	if _, err := h.Apply(replaceTx(document.OriginUser, "a", "edited")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := blockText(t, d, "a"); got != "edited" {
		t.Fatalf("text = %q, want %q", got, "edited")
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := blockText(t, d, "a"); got != "alpha" {
		t.Errorf("after undo, text = %q, want %q", got, "alpha")
	}

	if err := h.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if got := blockText(t, d, "a"); got != "edited" {
		t.Errorf("after redo, text = %q, want %q", got, "edited")
	}
}

func TestUndoEmptyStack(t *testing.T) {
	h := New(newDoc(t), 0)
	if err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
	if err := h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestAgentTransactionsExcluded(t *testing.T) {
	d := newDoc(t)
	h := New(d, 0)

	if _, err := h.Apply(replaceTx(document.OriginAgent, "a", "ai text")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := blockText(t, d, "a"); got != "ai text" {
		t.Fatalf("agent edit not applied: %q", got)
	}

	// The agent edit must not be undoable.
	if h.CanUndo() {
		t.Error("agent transaction was recorded in undo history")
	}
	if err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestGroupedUndo(t *testing.T) {
	d := newDoc(t)
	h := New(d, 0)

	err := h.Transaction("multi edit", func() error {
		if _, err := h.Apply(replaceTx(document.OriginUser, "a", "one")); err != nil {
			return err
		}
		_, err := h.Apply(replaceTx(document.OriginUser, "b", "two"))
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	if h.UndoDepth() != 1 {
		t.Fatalf("expected 1 undo unit, got %d", h.UndoDepth())
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := blockText(t, d, "a"); got != "alpha" {
		t.Errorf("block a = %q, want alpha", got)
	}
	if got := blockText(t, d, "b"); got != "beta" {
		t.Errorf("block b = %q, want beta", got)
	}
}

func TestCancelledGroupNotRecorded(t *testing.T) {
	d := newDoc(t)
	h := New(d, 0)

	failErr := errors.New("boom")
	err := h.Transaction("failing edit", func() error {
		if _, err := h.Apply(replaceTx(document.OriginUser, "a", "partial")); err != nil {
			return err
		}
		return failErr
	})
	if !errors.Is(err, failErr) {
		t.Fatalf("expected boom, got %v", err)
	}

	// The applied edit stays (documented behavior) but is not undoable.
	if got := blockText(t, d, "a"); got != "partial" {
		t.Errorf("block a = %q, want partial", got)
	}
	if h.CanUndo() {
		t.Error("cancelled group was recorded")
	}
}

func TestRedoClearedByNewEdit(t *testing.T) {
	d := newDoc(t)
	h := New(d, 0)

	if _, err := h.Apply(replaceTx(document.OriginUser, "a", "first")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if _, err := h.Apply(replaceTx(document.OriginUser, "a", "second")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if h.CanRedo() {
		t.Error("redo stack should be cleared by a new edit")
	}
}
