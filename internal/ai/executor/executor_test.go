package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/history"
	"github.com/dshills/draftpilot/internal/rebase"
	"github.com/dshills/draftpilot/internal/suggest"
)

func para(id, text string) *document.Block {
	return &document.Block{ID: document.BlockID(id), Type: "paragraph", Content: document.PlainText(text)}
}

type fixture struct {
	doc   *document.Document
	marks *suggest.Set
	hist  *history.History
	exec  *Executor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	d, err := document.FromBlocks(para("b1", "first"), para("b2", "second"), para("b3", "third"))
	if err != nil {
		t.Fatalf("FromBlocks failed: %v", err)
	}
	marks := suggest.NewSet(d)
	return &fixture{
		doc:   d,
		marks: marks,
		hist:  history.New(d, 0),
		exec:  New(d, marks, opts...),
	}
}

func (f *fixture) project() *rebase.Context {
	return rebase.Project(f.doc, f.marks)
}

func TestExecuteUpdate(t *testing.T) {
	f := newFixture(t)
	op := &operation.Update{Target: "b2", Content: document.PlainText("new text")}

	steps, err := f.exec.Execute(context.Background(), op, f.project())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// select then replace.
	if len(steps) != 2 || steps[0].Kind != StepSelect || steps[1].Kind != StepReplace {
		t.Errorf("steps = %v", steps)
	}

	b, _ := f.doc.Block("b2")
	if got := b.Content.Text(); got != "new text" {
		t.Errorf("b2 = %q, want %q", got, "new text")
	}
	for _, id := range []document.BlockID{"b1", "b3"} {
		blk, _ := f.doc.Block(id)
		if blk.Content.Text() == "new text" {
			t.Errorf("sibling %s modified", id)
		}
	}

	// Suggestion mark pending on b2.
	m, ok := f.marks.ByBlock("b2")
	if !ok || m.Kind != suggest.MarkUpdate {
		t.Error("expected pending update mark on b2")
	}
}

func TestUpdateThenRejectRestoresOriginal(t *testing.T) {
	f := newFixture(t)

	// A user edit recorded before the AI pass; it must be the only
	// undo unit left after the reject.
	userTx := document.Transaction{
		Label:  "edit b1",
		Origin: document.OriginUser,
		Edits: []document.Edit{{
			Kind:    document.EditReplace,
			Target:  "b1",
			Content: document.PlainText("user edit"),
		}},
	}
	if _, err := f.hist.Apply(userTx); err != nil {
		t.Fatalf("user Apply failed: %v", err)
	}

	op := &operation.Update{Target: "b2", Content: document.PlainText("new text")}
	if _, err := f.exec.Execute(context.Background(), op, f.project()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := f.marks.Revert(); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}

	b, _ := f.doc.Block("b2")
	if got := b.Content.Text(); got != "second" {
		t.Errorf("b2 = %q, want original", got)
	}
	// Neither the AI steps nor the revert entered undo history; only
	// the user edit remains undoable.
	if got := f.hist.UndoDepth(); got != 1 {
		t.Fatalf("undo depth = %d, want 1", got)
	}
	if err := f.hist.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	b, _ = f.doc.Block("b1")
	if got := b.Content.Text(); got != "first" {
		t.Errorf("b1 = %q after undo, want original", got)
	}
}

func TestExecuteMultiSpanUpdatePacesInserts(t *testing.T) {
	f := newFixture(t)
	content := document.InlineContent{
		{Text: "one "},
		{Text: "two ", Styles: document.StyleSet{Bold: true}},
		{Text: "three"},
	}
	op := &operation.Update{Target: "b1", Content: content}

	steps, err := f.exec.Execute(context.Background(), op, f.project())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// select, replace(first span), insert x2.
	want := []StepKind{StepSelect, StepReplace, StepInsert, StepInsert}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(steps), len(want))
	}
	for i, k := range want {
		if steps[i].Kind != k {
			t.Errorf("step %d = %v, want %v", i, steps[i].Kind, k)
		}
	}

	b, _ := f.doc.Block("b1")
	if got := b.Content.Text(); got != "one two three" {
		t.Errorf("b1 = %q", got)
	}
	if len(b.Content) != 3 {
		t.Errorf("expected 3 spans, got %d", len(b.Content))
	}
}

func TestExecuteAdd(t *testing.T) {
	f := newFixture(t)
	op := &operation.Add{
		Anchor: document.Anchor{Block: "b2", Placement: document.PlaceAfter},
		Blocks: []*document.Block{para("x1", "new one"), para("x2", "new two")},
	}

	if _, err := f.exec.Execute(context.Background(), op, f.project()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var order []string
	for _, b := range f.doc.Blocks() {
		order = append(order, string(b.ID))
	}
	want := []string{"b1", "b2", "x1", "x2", "b3"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	for _, id := range []document.BlockID{"x1", "x2"} {
		m, ok := f.marks.ByBlock(id)
		if !ok || m.Kind != suggest.MarkInsert {
			t.Errorf("expected insert mark on %s", id)
		}
	}
}

func TestExecuteDeleteMarksWithoutRemoving(t *testing.T) {
	f := newFixture(t)
	op := &operation.Delete{Targets: []document.BlockID{"b3"}}

	if _, err := f.exec.Execute(context.Background(), op, f.project()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Block stays until accept.
	if !f.doc.Contains("b3") {
		t.Error("delete executed immediately; should await review")
	}
	m, ok := f.marks.ByBlock("b3")
	if !ok || m.Kind != suggest.MarkDelete {
		t.Error("expected delete mark on b3")
	}

	if err := f.marks.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if f.doc.Contains("b3") {
		t.Error("block not removed on accept")
	}
}

func TestExecuteStaleRebaseFailsBeforeAnySteps(t *testing.T) {
	f := newFixture(t)
	rc := f.project()

	// User edit between projection and execution.
	if _, err := f.doc.Apply(document.Transaction{Edits: []document.Edit{{
		Kind:    document.EditReplace,
		Target:  "b1",
		Content: document.PlainText("user edit"),
	}}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	op := &operation.Update{Target: "b2", Content: document.PlainText("ai edit")}
	_, err := f.exec.Execute(context.Background(), op, rc)
	if !errors.Is(err, rebase.ErrStaleRebase) {
		t.Fatalf("expected ErrStaleRebase, got %v", err)
	}

	// Fail closed: nothing applied.
	b, _ := f.doc.Block("b2")
	if got := b.Content.Text(); got != "second" {
		t.Errorf("b2 modified despite stale rebase: %q", got)
	}
}

func TestExecuteCancelledMidOperation(t *testing.T) {
	f := newFixture(t, WithStepDelay(time.Hour)) // cancellation must win the pace wait
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content := document.InlineContent{{Text: "a"}, {Text: "b"}}
	op := &operation.Update{Target: "b1", Content: content}

	_, err := f.exec.Execute(ctx, op, f.project())
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", stepErr.Err)
	}
}

func TestStepErrorReportsApplied(t *testing.T) {
	f := newFixture(t)
	rc := f.project()

	// Decompose against a valid context, then sabotage the document so
	// a later step fails: remove b2 via a raw transaction after the
	// first steps applied is hard to time, so instead target a block
	// that exists in projection but will be gone by apply time.
	op := &operation.Update{Target: "b2", Content: document.PlainText("x")}
	steps, err := f.exec.decompose(op, rc)
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}
	if _, err := f.doc.Apply(document.Transaction{Edits: []document.Edit{{
		Kind:    document.EditRemove,
		Targets: []document.BlockID{"b2"},
	}}}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	applied := 0
	var failed error
	for i, s := range steps {
		if err := f.exec.applyStep(op, s); err != nil {
			failed = &StepError{Step: s, Index: i, Applied: applied, Err: err}
			break
		}
		applied++
	}
	var stepErr *StepError
	if !errors.As(failed, &stepErr) {
		t.Fatalf("expected a step failure, got %v", failed)
	}
	if stepErr.Applied != 1 { // the select step applied, replace failed
		t.Errorf("Applied = %d, want 1", stepErr.Applied)
	}
}
