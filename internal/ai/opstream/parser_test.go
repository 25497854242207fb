package opstream

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/document"
)

func para(id, text string) *document.Block {
	return &document.Block{ID: document.BlockID(id), Type: "paragraph", Content: document.PlainText(text)}
}

func view(t *testing.T) *document.Snapshot {
	t.Helper()
	d, err := document.FromBlocks(para("a", "alpha"), para("b", "beta"), para("c", "gamma"))
	if err != nil {
		t.Fatalf("FromBlocks failed: %v", err)
	}
	return d.Snapshot()
}

func TestPartialAddNotCommitted(t *testing.T) {
	p := NewParser(view(t))

	// Partial arguments: structurally incomplete JSON.
	res := p.Feed("call-1", operation.ToolAdd, `{"position": {"anchor": "b", "placement": "after"}`)
	if res.Status != StatusIncomplete {
		t.Fatalf("partial chunk status = %v, want incomplete", res.Status)
	}
	if len(p.Committed()) != 0 {
		t.Fatal("operation committed from partial chunk")
	}

	// Completion commits exactly one operation.
	res = p.Feed("call-1", operation.ToolAdd, `, "blocks": [{"id": "x", "type": "paragraph", "text": "hi"}]}`)
	if res.Status != StatusValid {
		t.Fatalf("completed chunk status = %v (err %v), want valid", res.Status, res.Err)
	}
	if got := len(p.Committed()); got != 1 {
		t.Fatalf("committed %d operations, want 1", got)
	}
	if _, ok := res.Op.(*operation.Add); !ok {
		t.Errorf("committed %T, want *operation.Add", res.Op)
	}
}

func TestClosedButFieldIncompleteJSON(t *testing.T) {
	p := NewParser(view(t))

	// Valid JSON that lacks a required field stays possibly-partial.
	res := p.Feed("call-1", operation.ToolAdd, `{"position": {"placement": "doc-end"}}`)
	if res.Status != StatusIncomplete {
		t.Fatalf("status = %v, want incomplete", res.Status)
	}

	// Finishing the call with the field still missing is invalid.
	res = p.Finish("call-1")
	if res.Status != StatusInvalid {
		t.Fatalf("finish status = %v, want invalid", res.Status)
	}
	if !errors.Is(res.Err, ErrIncompleteCall) {
		t.Errorf("expected ErrIncompleteCall, got %v", res.Err)
	}
}

func TestCommitOrderMatchesCompletionOrder(t *testing.T) {
	p := NewParser(view(t))

	calls := []struct {
		id   string
		tool string
		args string
	}{
		{"c1", operation.ToolUpdate, `{"id": "a", "text": "one"}`},
		{"c2", operation.ToolUpdate, `{"id": "b", "text": "two"}`},
		{"c3", operation.ToolDelete, `{"ids": ["c"]}`},
	}
	for _, c := range calls {
		if res := p.Feed(c.id, c.tool, c.args); res.Status != StatusValid {
			t.Fatalf("call %s: status = %v (err %v)", c.id, res.Status, res.Err)
		}
	}

	committed := p.Committed()
	if len(committed) != 3 {
		t.Fatalf("committed %d, want 3", len(committed))
	}
	if up, ok := committed[0].(*operation.Update); !ok || up.Target != "a" {
		t.Errorf("first committed = %v", operation.String(committed[0]))
	}
	if up, ok := committed[1].(*operation.Update); !ok || up.Target != "b" {
		t.Errorf("second committed = %v", operation.String(committed[1]))
	}
	if _, ok := committed[2].(*operation.Delete); !ok {
		t.Errorf("third committed = %v", operation.String(committed[2]))
	}
}

func TestInterleavedCalls(t *testing.T) {
	p := NewParser(view(t))

	if res := p.Feed("c1", operation.ToolUpdate, `{"id": "a",`); res.Status != StatusIncomplete {
		t.Fatalf("c1 partial: %v", res.Status)
	}
	if res := p.Feed("c2", operation.ToolDelete, `{"ids":`); res.Status != StatusIncomplete {
		t.Fatalf("c2 partial: %v", res.Status)
	}
	// c2 completes before c1.
	if res := p.Feed("c2", operation.ToolDelete, ` ["c"]}`); res.Status != StatusValid {
		t.Fatalf("c2 complete: %v (err %v)", res.Status, res.Err)
	}
	if res := p.Feed("c1", operation.ToolUpdate, ` "text": "zzz"}`); res.Status != StatusValid {
		t.Fatalf("c1 complete: %v (err %v)", res.Status, res.Err)
	}

	committed := p.Committed()
	if len(committed) != 2 {
		t.Fatalf("committed %d, want 2", len(committed))
	}
	// Commit order is completion order: delete first.
	if _, ok := committed[0].(*operation.Delete); !ok {
		t.Errorf("first committed should be the delete, got %v", operation.String(committed[0]))
	}
}

func TestValidationFailureIsLocal(t *testing.T) {
	p := NewParser(view(t))

	// Duplicate identity: block "a" already exists.
	res := p.Feed("bad", operation.ToolAdd,
		`{"position": {"placement": "doc-end"}, "blocks": [{"id": "a", "type": "paragraph", "text": "dup"}]}`)
	if res.Status != StatusInvalid {
		t.Fatalf("status = %v, want invalid", res.Status)
	}
	if !errors.Is(res.Err, operation.ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity, got %v", res.Err)
	}

	// A sibling call still parses and commits.
	if res := p.Feed("good", operation.ToolUpdate, `{"id": "b", "text": "fine"}`); res.Status != StatusValid {
		t.Fatalf("sibling call status = %v (err %v)", res.Status, res.Err)
	}
	if len(p.Committed()) != 1 {
		t.Errorf("committed %d, want 1", len(p.Committed()))
	}
}

func TestFragmentAfterResolution(t *testing.T) {
	p := NewParser(view(t))

	if res := p.Feed("c1", operation.ToolDelete, `{"ids": ["a"]}`); res.Status != StatusValid {
		t.Fatalf("status = %v", res.Status)
	}
	res := p.Feed("c1", operation.ToolDelete, `garbage`)
	if res.Status != StatusInvalid || !errors.Is(res.Err, ErrCallFinished) {
		t.Errorf("expected ErrCallFinished, got status %v err %v", res.Status, res.Err)
	}
	// Still exactly one committed operation.
	if len(p.Committed()) != 1 {
		t.Errorf("committed %d, want 1", len(p.Committed()))
	}
}

func TestManyFragmentBoundaries(t *testing.T) {
	// The same payload split at every byte boundary commits exactly once.
	payload := `{"id": "b", "text": "split me"}`
	for cut := 1; cut < len(payload); cut++ {
		t.Run(fmt.Sprintf("cut%d", cut), func(t *testing.T) {
			p := NewParser(view(t))
			if res := p.Feed("c", operation.ToolUpdate, payload[:cut]); res.Status == StatusInvalid {
				t.Fatalf("prefix reported invalid: %v", res.Err)
			}
			res := p.Feed("c", operation.ToolUpdate, payload[cut:])
			if res.Status != StatusValid {
				t.Fatalf("status = %v (err %v), want valid", res.Status, res.Err)
			}
			if len(p.Committed()) != 1 {
				t.Fatalf("committed %d, want 1", len(p.Committed()))
			}
		})
	}
}
