package rebase

import (
	"errors"
	"testing"

	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/suggest"
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

func TestIdentityProjectionWithoutMarks(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, suggest.NewSet(d))

	if got := ctx.Projected().BlockCount(); got != d.BlockCount() {
		t.Errorf("projected count = %d, want %d", got, d.BlockCount())
	}

	// Every position maps to itself.
	for _, id := range []document.BlockID{"a", "b", "c"} {
		pos := Position{Block: id, Offset: 2}
		mapped, err := ctx.MapPosition(pos)
		if err != nil {
			t.Fatalf("MapPosition(%s) failed: %v", id, err)
		}
		if mapped != pos {
			t.Errorf("MapPosition(%v) = %v, want identity", pos, mapped)
		}
	}
}

func TestProjectionOmitsDeleteMarked(t *testing.T) {
	d := newDoc(t)
	marks := suggest.NewSet(d)

	original, _ := d.Block("b")
	if err := marks.Add(suggest.NewDeleteMark(original)); err != nil {
		t.Fatalf("Add mark failed: %v", err)
	}

	ctx := Project(d, marks)
	if ctx.Projected().Contains("b") {
		t.Error("delete-marked block should be omitted from projection")
	}
	if !ctx.Projected().Contains("a") || !ctx.Projected().Contains("c") {
		t.Error("unmarked blocks missing from projection")
	}
	// The live document still holds the block pending review.
	if !d.Contains("b") {
		t.Error("delete-marked block removed from live document before accept")
	}
}

func TestStaleRebaseFailsClosed(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, nil)

	// A user edit after projection invalidates the context.
	tx := document.Transaction{Edits: []document.Edit{{
		Kind:    document.EditReplace,
		Target:  "a",
		Content: document.PlainText("user typed here"),
	}}}
	if _, err := d.Apply(tx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if ctx.Valid() {
		t.Error("context should be invalid after live edit")
	}
	if _, err := ctx.MapBlock("a"); !errors.Is(err, ErrStaleRebase) {
		t.Errorf("MapBlock: expected ErrStaleRebase, got %v", err)
	}
	if _, err := ctx.MapPosition(Position{Block: "a"}); !errors.Is(err, ErrStaleRebase) {
		t.Errorf("MapPosition: expected ErrStaleRebase, got %v", err)
	}
	if _, err := ctx.MapAnchor(document.Anchor{Block: "a", Placement: document.PlaceAfter}); !errors.Is(err, ErrStaleRebase) {
		t.Errorf("MapAnchor: expected ErrStaleRebase, got %v", err)
	}
}

func TestMapUnknownBlock(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, nil)

	if _, err := ctx.MapBlock("nope"); !errors.Is(err, ErrUnknownBlock) {
		t.Errorf("expected ErrUnknownBlock, got %v", err)
	}
}

func TestMapPositionOutOfRange(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, nil)

	if _, err := ctx.MapPosition(Position{Block: "a", Offset: 999}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	if _, err := ctx.MapPosition(Position{Block: "a", Offset: -1}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestDocLevelAnchorsAlwaysMap(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, nil)

	for _, p := range []document.Placement{document.PlaceDocStart, document.PlaceDocEnd} {
		a, err := ctx.MapAnchor(document.Anchor{Placement: p})
		if err != nil {
			t.Errorf("MapAnchor(%v) failed: %v", p, err)
		}
		if a.Placement != p {
			t.Errorf("placement changed: %v -> %v", p, a.Placement)
		}
	}
}

func TestInvalidate(t *testing.T) {
	d := newDoc(t)
	ctx := Project(d, nil)
	ctx.Invalidate()

	if ctx.Valid() {
		t.Error("invalidated context reports valid")
	}
	if _, err := ctx.MapBlock("a"); !errors.Is(err, ErrStaleRebase) {
		t.Errorf("expected ErrStaleRebase, got %v", err)
	}
}
