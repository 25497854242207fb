package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/rebase"
	"github.com/dshills/draftpilot/internal/suggest"
)

// Option configures an Executor.
type Option func(*Executor)

// WithStepDelay sets the pacing delay between steps. Zero disables
// pacing; non-interactive contexts should leave it zero.
func WithStepDelay(d time.Duration) Option {
	return func(e *Executor) { e.delay = d }
}

// WithCursorFunc installs a callback invoked with each step's cursor
// range, for rendering the agent cursor.
func WithCursorFunc(fn func(CursorRange)) Option {
	return func(e *Executor) { e.cursor = fn }
}

// Executor applies validated operations to a live document.
type Executor struct {
	doc    *document.Document
	marks  *suggest.Set
	delay  time.Duration
	cursor func(CursorRange)
}

// New creates an executor bound to a document and its mark set.
func New(doc *document.Document, marks *suggest.Set, opts ...Option) *Executor {
	e := &Executor{doc: doc, marks: marks}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute decomposes an operation using the rebase context and applies
// its steps in order. Returned steps reflect what was attempted; on
// error, the StepError says how many applied.
func (e *Executor) Execute(ctx context.Context, op operation.Operation, rc *rebase.Context) ([]Step, error) {
	steps, err := e.decompose(op, rc)
	if err != nil {
		return nil, err
	}

	e.doc.SetAgentWriting(true)
	defer e.doc.SetAgentWriting(false)

	applied := 0
	for i, step := range steps {
		if i > 0 {
			if err := e.pace(ctx); err != nil {
				return steps, &StepError{Step: step, Index: i, Applied: applied, Err: err}
			}
		}
		if err := e.applyStep(op, step); err != nil {
			return steps, &StepError{Step: step, Index: i, Applied: applied, Err: err}
		}
		applied++
	}
	return steps, nil
}

// pace waits the configured inter-step delay, honoring cancellation.
func (e *Executor) pace(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decompose maps the operation through the rebase context and breaks it
// into agent steps. The closed type switch mirrors the operation union.
func (e *Executor) decompose(op operation.Operation, rc *rebase.Context) ([]Step, error) {
	switch v := op.(type) {
	case *operation.Add:
		return e.decomposeAdd(v, rc)
	case *operation.Update:
		return e.decomposeUpdate(v, rc)
	case *operation.Delete:
		return e.decomposeDelete(v, rc)
	default:
		return nil, fmt.Errorf("executor: unknown operation %T", op)
	}
}

func (e *Executor) decomposeAdd(op *operation.Add, rc *rebase.Context) ([]Step, error) {
	anchor, err := rc.MapAnchor(op.Anchor)
	if err != nil {
		return nil, err
	}

	var steps []Step
	if !anchor.Block.IsZero() {
		steps = append(steps, Step{
			Kind:   StepSelect,
			Target: anchor.Block,
			Cursor: &CursorRange{Block: anchor.Block},
		})
	}

	// First block lands at the mapped anchor; the rest chain after it
	// so insertion order is preserved regardless of placement.
	prev := document.BlockID("")
	for i, b := range op.Blocks {
		stepAnchor := anchor
		if i > 0 {
			stepAnchor = document.Anchor{Block: prev, Placement: document.PlaceAfter}
		}
		steps = append(steps, Step{
			Kind:   StepInsert,
			Anchor: stepAnchor,
			Block:  b,
			Cursor: &CursorRange{Block: b.ID, End: len(b.Text())},
		})
		prev = b.ID
	}
	return steps, nil
}

func (e *Executor) decomposeUpdate(op *operation.Update, rc *rebase.Context) ([]Step, error) {
	target, err := rc.MapBlock(op.Target)
	if err != nil {
		return nil, err
	}

	live, ok := e.doc.Block(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", rebase.ErrUnknownBlock, target)
	}

	steps := []Step{{
		Kind:   StepSelect,
		Target: target,
		Cursor: &CursorRange{Block: target, End: len(live.Text())},
	}}

	// Table, props, or type-only updates apply as one replace step.
	if len(op.Content) == 0 {
		steps = append(steps, Step{
			Kind:      StepReplace,
			Target:    target,
			Content:   op.Content,
			Table:     op.Table,
			Props:     op.Props,
			BlockType: op.BlockType,
		})
		return steps, nil
	}

	// Inline content lands span by span: replace with the first span,
	// then append the rest, emulating incremental typing.
	first := op.Content[:1]
	steps = append(steps, Step{
		Kind:      StepReplace,
		Target:    target,
		Content:   first,
		Table:     op.Table,
		Props:     op.Props,
		BlockType: op.BlockType,
		Cursor:    &CursorRange{Block: target, End: len(first.Text())},
	})
	written := len(first.Text())
	for _, span := range op.Content[1:] {
		steps = append(steps, Step{
			Kind:    StepInsert,
			Target:  target,
			Content: document.InlineContent{span},
			Cursor:  &CursorRange{Block: target, Start: written, End: written + len(span.Text)},
		})
		written += len(span.Text)
	}
	return steps, nil
}

func (e *Executor) decomposeDelete(op *operation.Delete, rc *rebase.Context) ([]Step, error) {
	steps := make([]Step, 0, len(op.Targets))
	for _, id := range op.Targets {
		target, err := rc.MapBlock(id)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Kind:   StepSelect,
			Target: target,
			Cursor: &CursorRange{Block: target},
		})
	}
	return steps, nil
}

// applyStep applies one step as an agent-origin transaction and records
// the suggestion mark it implies.
func (e *Executor) applyStep(op operation.Operation, step Step) error {
	if e.cursor != nil && step.Cursor != nil {
		e.cursor(*step.Cursor)
	}

	switch step.Kind {
	case StepSelect:
		// Deletes mark on select: the block is kept until review.
		if _, isDelete := op.(*operation.Delete); isDelete {
			original, ok := e.doc.Block(step.Target)
			if !ok {
				return fmt.Errorf("%w: %s", rebase.ErrUnknownBlock, step.Target)
			}
			return e.marks.Add(suggest.NewDeleteMark(original))
		}
		return nil

	case StepReplace:
		original, ok := e.doc.Block(step.Target)
		if !ok {
			return fmt.Errorf("%w: %s", rebase.ErrUnknownBlock, step.Target)
		}
		tx := document.Transaction{
			Label:  "ai replace",
			Origin: document.OriginAgent,
			Edits: []document.Edit{{
				Kind:        document.EditReplace,
				Target:      step.Target,
				Content:     step.Content,
				Table:       step.Table,
				Props:       step.Props,
				ReplaceType: step.BlockType,
			}},
		}
		if _, err := e.doc.Apply(tx); err != nil {
			return err
		}
		// One mark per block; later steps on the same block extend the
		// same pending suggestion.
		if _, marked := e.marks.ByBlock(step.Target); !marked {
			live, _ := e.doc.Block(step.Target)
			return e.marks.Add(suggest.NewUpdateMark(original, live.Text()))
		}
		return nil

	case StepInsert:
		if step.Block != nil {
			tx := document.Transaction{
				Label:  "ai insert",
				Origin: document.OriginAgent,
				Edits: []document.Edit{{
					Kind:   document.EditInsert,
					Anchor: step.Anchor,
					Blocks: []*document.Block{step.Block},
				}},
			}
			if _, err := e.doc.Apply(tx); err != nil {
				return err
			}
			return e.marks.Add(suggest.NewInsertMark(step.Block.ID, step.Block.Text()))
		}

		// Append inline content to an existing block.
		live, ok := e.doc.Block(step.Target)
		if !ok {
			return fmt.Errorf("%w: %s", rebase.ErrUnknownBlock, step.Target)
		}
		merged := append(live.Content.Clone(), step.Content...)
		tx := document.Transaction{
			Label:  "ai append",
			Origin: document.OriginAgent,
			Edits: []document.Edit{{
				Kind:    document.EditReplace,
				Target:  step.Target,
				Content: merged,
			}},
		}
		if _, err := e.doc.Apply(tx); err != nil {
			return err
		}
		e.marks.Refresh(step.Target, merged.Text())
		return nil

	default:
		return fmt.Errorf("executor: unknown step kind %d", step.Kind)
	}
}
