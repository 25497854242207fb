package opstream

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/document"
)

// Errors returned by the parser.
var (
	// ErrCallFinished indicates a fragment arrived for a call that
	// already committed or failed.
	ErrCallFinished = errors.New("opstream: tool call already resolved")

	// ErrIncompleteCall indicates a call ended before its arguments
	// formed a complete operation.
	ErrIncompleteCall = errors.New("opstream: tool call ended incomplete")
)

// Status is the three-valued outcome of feeding a fragment.
type Status uint8

const (
	// StatusIncomplete means the call's arguments are still partial.
	// Expected during streaming; not an error.
	StatusIncomplete Status = iota

	// StatusInvalid means the call completed but its arguments failed
	// decoding or schema validation. Local to the call; the stream
	// continues.
	StatusInvalid

	// StatusValid means a complete operation was committed.
	StatusValid
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusInvalid:
		return "invalid"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one fed fragment.
type Result struct {
	// Status is the three-valued parse outcome.
	Status Status

	// CallID identifies the tool call the fragment belongs to.
	CallID string

	// Op is the committed operation. Set only for StatusValid.
	Op operation.Operation

	// Err names the violated constraint. Set only for StatusInvalid.
	Err error
}

// callState accumulates one tool call's argument text.
type callState struct {
	tool     string
	buf      strings.Builder
	resolved bool
}

// Parser incrementally parses tool-call fragments against a document
// view. Safe for use from a single stream-consuming goroutine; the
// mutex guards the committed list read from other goroutines.
type Parser struct {
	mu        sync.Mutex
	view      *document.Snapshot
	calls     map[string]*callState
	committed []operation.Operation
}

// NewParser creates a parser validating against the given view.
func NewParser(view *document.Snapshot) *Parser {
	return &Parser{
		view:  view,
		calls: make(map[string]*callState),
	}
}

// Feed appends an argument fragment to the identified tool call and
// attempts to parse the accumulated text. Partial malformedness is
// tolerated until the call completes: Feed never fails on an
// incomplete JSON prefix.
func (p *Parser) Feed(callID, toolName, fragment string) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs, ok := p.calls[callID]
	if !ok {
		cs = &callState{tool: toolName}
		p.calls[callID] = cs
	}
	if cs.resolved {
		return Result{Status: StatusInvalid, CallID: callID, Err: fmt.Errorf("%w: %s", ErrCallFinished, callID)}
	}
	cs.buf.WriteString(fragment)

	return p.tryResolve(callID, cs, false)
}

// Finish signals that the transport will send no more fragments for the
// call. A call still incomplete at finish resolves to invalid.
func (p *Parser) Finish(callID string) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs, ok := p.calls[callID]
	if !ok {
		return Result{Status: StatusInvalid, CallID: callID, Err: fmt.Errorf("%w: unknown call %s", ErrIncompleteCall, callID)}
	}
	if cs.resolved {
		// Already committed or failed during streaming; finishing is a no-op.
		return Result{Status: StatusIncomplete, CallID: callID}
	}
	return p.tryResolve(callID, cs, true)
}

// tryResolve attempts to turn the accumulated text into an operation.
// Caller holds the lock. final forces resolution.
func (p *Parser) tryResolve(callID string, cs *callState, final bool) Result {
	raw := cs.buf.String()

	if !gjson.Valid(raw) {
		if !final {
			return Result{Status: StatusIncomplete, CallID: callID}
		}
		cs.resolved = true
		return Result{
			Status: StatusInvalid,
			CallID: callID,
			Err:    fmt.Errorf("%w: malformed arguments for %s", ErrIncompleteCall, cs.tool),
		}
	}

	// Structurally complete JSON that still lacks required fields is
	// possibly partial: the model may emit a syntactically closed
	// prefix before the stream truly ends.
	parsed := gjson.Parse(raw)
	for _, field := range operation.RequiredFields(cs.tool) {
		if !parsed.Get(field).Exists() {
			if !final {
				return Result{Status: StatusIncomplete, CallID: callID}
			}
			cs.resolved = true
			return Result{
				Status: StatusInvalid,
				CallID: callID,
				Err:    fmt.Errorf("%w: %s missing %q", ErrIncompleteCall, cs.tool, field),
			}
		}
	}

	cs.resolved = true

	op, err := operation.DecodeArgs(cs.tool, []byte(raw))
	if err != nil {
		return Result{Status: StatusInvalid, CallID: callID, Err: err}
	}
	if err := operation.Validate(op, p.view); err != nil {
		return Result{Status: StatusInvalid, CallID: callID, Err: err}
	}

	p.committed = append(p.committed, op)
	return Result{Status: StatusValid, CallID: callID, Op: op}
}

// Rebind points validation at a fresh document view. Callers rebind
// after applying a committed operation so later calls in the same
// stream validate against the document that operation produced.
func (p *Parser) Rebind(view *document.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = view
}

// Committed returns the operations committed so far, in commit order.
func (p *Parser) Committed() []operation.Operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]operation.Operation, len(p.committed))
	copy(out, p.committed)
	return out
}
