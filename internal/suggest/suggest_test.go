package suggest

import (
	"errors"
	"testing"

	"github.com/dshills/draftpilot/internal/document"
)

func para(id, text string) *document.Block {
	return &document.Block{ID: document.BlockID(id), Type: "paragraph", Content: document.PlainText(text)}
}

func newDoc(t *testing.T) *document.Document {
	t.Helper()
	d, err := document.FromBlocks(para("a", "alpha"), para("b", "beta"), para("c", "gamma"))
	if err != nil {
		t.Fatalf("FromBlocks failed: %v", err)
	}
	return d
}

// applyUpdate replaces a block's content as the agent would and marks it.
func applyUpdate(t *testing.T, d *document.Document, s *Set, id, newText string) {
	t.Helper()
	original, ok := d.Block(document.BlockID(id))
	if !ok {
		t.Fatalf("block %s not found", id)
	}
	tx := document.Transaction{
		Origin: document.OriginAgent,
		Edits: []document.Edit{{
			Kind:    document.EditReplace,
			Target:  document.BlockID(id),
			Content: document.PlainText(newText),
		}},
	}
	if _, err := d.Apply(tx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := s.Add(NewUpdateMark(original, newText)); err != nil {
		t.Fatalf("Add mark failed: %v", err)
	}
}

func TestUpdateMarkDiffSpans(t *testing.T) {
	m := NewUpdateMark(para("b", "old text"), "new text")

	if m.Kind != MarkUpdate {
		t.Errorf("kind = %v, want update", m.Kind)
	}
	if len(m.Spans) == 0 {
		t.Fatal("expected diff spans")
	}
	var inserted, deleted string
	for _, sp := range m.Spans {
		switch sp.Op {
		case SpanInserted:
			inserted += sp.Text
		case SpanDeleted:
			deleted += sp.Text
		}
	}
	if inserted == "" || deleted == "" {
		t.Errorf("expected both inserted and deleted spans, got +%q -%q", inserted, deleted)
	}
}

func TestResolveAccept(t *testing.T) {
	d := newDoc(t)
	s := NewSet(d)
	applyUpdate(t, d, s, "b", "revised")

	if err := s.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	b, _ := d.Block("b")
	if got := b.Content.Text(); got != "revised" {
		t.Errorf("block b = %q, want revised", got)
	}
	if s.Len() != 0 {
		t.Errorf("marks remain after resolve: %d", s.Len())
	}
}

func TestRevertReject(t *testing.T) {
	d := newDoc(t)
	s := NewSet(d)
	applyUpdate(t, d, s, "b", "revised")

	if err := s.Revert(); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}

	b, _ := d.Block("b")
	if got := b.Content.Text(); got != "beta" {
		t.Errorf("block b = %q, want beta", got)
	}
	if s.Len() != 0 {
		t.Errorf("marks remain after revert: %d", s.Len())
	}
}

func TestRevertRemovesInsertedBlocks(t *testing.T) {
	d := newDoc(t)
	s := NewSet(d)

	tx := document.Transaction{
		Origin: document.OriginAgent,
		Edits: []document.Edit{{
			Kind:   document.EditInsert,
			Anchor: document.Anchor{Block: "b", Placement: document.PlaceAfter},
			Blocks: []*document.Block{para("x", "ai written")},
		}},
	}
	if _, err := d.Apply(tx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := s.Add(NewInsertMark("x", "ai written")); err != nil {
		t.Fatalf("Add mark failed: %v", err)
	}

	if err := s.Revert(); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if d.Contains("x") {
		t.Error("inserted block should be removed on reject")
	}
}

func TestResolveRemovesDeleteMarked(t *testing.T) {
	d := newDoc(t)
	s := NewSet(d)

	original, _ := d.Block("c")
	if err := s.Add(NewDeleteMark(original)); err != nil {
		t.Fatalf("Add mark failed: %v", err)
	}

	if err := s.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d.Contains("c") {
		t.Error("delete-marked block should be removed on accept")
	}
}

func TestResolveDeleteMarksOnNestedBlocks(t *testing.T) {
	parent := para("p", "parent")
	parent.Children = []*document.Block{para("child", "nested")}
	d, err := document.FromBlocks(para("a", "alpha"), parent)
	if err != nil {
		t.Fatalf("FromBlocks failed: %v", err)
	}
	s := NewSet(d)

	// Marking both a block and its child for deletion must resolve in
	// one step without leaving the document half removed.
	for _, id := range []document.BlockID{"p", "child"} {
		original, _ := d.Block(id)
		if err := s.Add(NewDeleteMark(original)); err != nil {
			t.Fatalf("Add mark failed: %v", err)
		}
	}

	if err := s.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d.Contains("p") || d.Contains("child") {
		t.Error("delete-marked subtree should be removed on accept")
	}
	if !d.Contains("a") {
		t.Error("unmarked block removed")
	}
}

func TestDoubleMarkRejected(t *testing.T) {
	d := newDoc(t)
	s := NewSet(d)
	applyUpdate(t, d, s, "b", "revised")

	original, _ := d.Block("b")
	if err := s.Add(NewUpdateMark(original, "again")); !errors.Is(err, ErrAlreadyMarked) {
		t.Errorf("expected ErrAlreadyMarked, got %v", err)
	}
}

func TestResolveEmpty(t *testing.T) {
	s := NewSet(newDoc(t))
	if err := s.Resolve(); !errors.Is(err, ErrNoMarks) {
		t.Errorf("expected ErrNoMarks, got %v", err)
	}
	if err := s.Revert(); !errors.Is(err, ErrNoMarks) {
		t.Errorf("expected ErrNoMarks, got %v", err)
	}
}
