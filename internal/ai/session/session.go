// Package session runs the review cycle for one AI edit request: it
// submits the request, consumes the operation stream, drives the
// executor, and holds the accept/reject decision for the user.
//
// A session is a state machine. One request is in flight at a time;
// submitting while a stream is active fails with ErrBusy. Closing the
// session cancels the transport stream and discards unapplied chunks;
// steps already committed to the document stay, with their suggestion
// marks pending.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/draftpilot/internal/ai/executor"
	"github.com/dshills/draftpilot/internal/ai/opstream"
	"github.com/dshills/draftpilot/internal/ai/request"
	"github.com/dshills/draftpilot/internal/ai/transport"
	"github.com/dshills/draftpilot/internal/collab"
	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/event"
	"github.com/dshills/draftpilot/internal/history"
	"github.com/dshills/draftpilot/internal/rebase"
	"github.com/dshills/draftpilot/internal/suggest"
)

// Errors returned by session operations.
var (
	// ErrBusy indicates a request is already in flight.
	ErrBusy = errors.New("session: request already in flight")

	// ErrBadState indicates the operation is not legal in the current
	// state.
	ErrBadState = errors.New("session: operation not valid in current state")

	// ErrNoFailure indicates Retry was called without a recorded failure.
	ErrNoFailure = errors.New("session: nothing to retry")
)

// State is the session's position in the review cycle.
type State uint8

const (
	// StateClosed is the resting state; no session UI is open.
	StateClosed State = iota

	// StateUserInput means the session is open and waiting for a prompt.
	StateUserInput

	// StateThinking means the request was sent and no chunk has arrived.
	StateThinking

	// StateAIWriting means stream chunks are being applied.
	StateAIWriting

	// StateUserReviewing means the stream completed and suggestion
	// marks await accept or reject.
	StateUserReviewing

	// StateError means a failure was recorded; Retry or Close.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateUserInput:
		return "user-input"
	case StateThinking:
		return "thinking"
	case StateAIWriting:
		return "ai-writing"
	case StateUserReviewing:
		return "user-reviewing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FailureKind classifies a recorded failure.
type FailureKind uint8

const (
	// FailTransport is a network or provider failure. Retry resends the
	// whole request.
	FailTransport FailureKind = iota

	// FailValidation is a malformed or schema-violating operation.
	// Local to the operation; siblings still apply.
	FailValidation

	// FailExecution is an operation that failed to apply against the
	// live document. Retry re-asks the model with a correction.
	FailExecution

	// FailStaleRebase is a live document that diverged from the
	// projection basis. Handled like an execution failure.
	FailStaleRebase
)

// String returns the kind name.
func (k FailureKind) String() string {
	switch k {
	case FailTransport:
		return "transport"
	case FailValidation:
		return "validation"
	case FailExecution:
		return "execution"
	case FailStaleRebase:
		return "stale-rebase"
	default:
		return "unknown"
	}
}

// Failure is a recorded, retrievable failure cause.
type Failure struct {
	// Kind classifies the failure.
	Kind FailureKind

	// Op is the tool name of the failing operation, when one is known.
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Op != "" {
		return fmt.Sprintf("session: %s failure in %s: %v", f.Kind, f.Op, f.Err)
	}
	return fmt.Sprintf("session: %s failure: %v", f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// Option configures a session.
type Option func(*Session)

// WithBus publishes session events to the given bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Session) { s.bus = bus }
}

// WithBranch runs the session atop a collaborative branch: accept
// merges it, reject discards it.
func WithBranch(br collab.Branch) Option {
	return func(s *Session) { s.branch = br }
}

// WithHistory routes user edits applied through the session into the
// given undo history. AI steps and mark resolution never enter it.
func WithHistory(h *history.History) Option {
	return func(s *Session) { s.hist = h }
}

// WithStepDelay paces executor steps.
func WithStepDelay(d time.Duration) Option {
	return func(s *Session) { s.stepDelay = d }
}

// Session is the review controller for one document.
type Session struct {
	doc     *document.Document
	marks   *suggest.Set
	builder *request.Builder
	tr      transport.Transport

	bus       *event.Bus
	branch    collab.Branch
	hist      *history.History
	stepDelay time.Duration

	mu       sync.Mutex
	state    State
	failure  *Failure
	valFails []Failure
	lastReq  transport.Request
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a closed session over a live document.
func New(doc *document.Document, marks *suggest.Set, builder *request.Builder, tr transport.Transport, opts ...Option) *Session {
	s := &Session{
		doc:     doc,
		marks:   marks,
		builder: builder,
		tr:      tr,
		state:   StateClosed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failure returns the recorded failure, if the session is in error.
func (s *Session) Failure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// ValidationFailures returns the per-operation validation failures
// collected during the last stream. These do not halt the stream.
func (s *Session) ValidationFailures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Failure, len(s.valFails))
	copy(out, s.valFails)
	return out
}

// Wait blocks until the in-flight stream finishes. Test helper shape;
// hosts normally observe state-change events instead.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Open transitions closed → user-input.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		return fmt.Errorf("%w: open from %s", ErrBadState, s.state)
	}
	s.setStateLocked(StateUserInput)
	return nil
}

// Submit sends a user prompt to the model and transitions to thinking.
// selection lists the block IDs in scope; empty means the whole
// document. The stream is consumed on a background goroutine.
func (s *Session) Submit(ctx context.Context, prompt string, selection []document.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUserInput:
	case StateThinking, StateAIWriting:
		return ErrBusy
	default:
		return fmt.Errorf("%w: submit from %s", ErrBadState, s.state)
	}

	req, err := s.builder.Build(s.doc.Snapshot(), prompt, selection)
	if err != nil {
		return err
	}
	s.lastReq = req
	s.failure = nil
	s.valFails = nil
	s.setStateLocked(StateThinking)
	s.publish(event.TopicSessionPromptSubmitted, prompt)
	s.startLocked(ctx, req)
	return nil
}

// ApplyUser applies a user-authored transaction to the live document,
// recording it in undo history when one is attached. User edits are
// legal in any state; an operation streaming against a now-stale
// projection fails its rebase check rather than applying over the edit.
func (s *Session) ApplyUser(tx document.Transaction) (document.TxResult, error) {
	tx.Origin = document.OriginUser
	var (
		res document.TxResult
		err error
	)
	if s.hist != nil {
		res, err = s.hist.Apply(tx)
	} else {
		res, err = s.doc.Apply(tx)
	}
	if err != nil {
		return res, err
	}
	s.publish(event.TopicDocumentApplied, event.DocumentApplied{
		Label:    tx.Label,
		Origin:   tx.Origin.String(),
		Revision: uint64(res.Revision),
		Blocks:   len(res.Changed),
	})
	return res, nil
}

// Accept resolves all suggestion marks into final content, merges the
// collaborative branch when one is active, and closes the session.
func (s *Session) Accept(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUserReviewing {
		s.mu.Unlock()
		return fmt.Errorf("%w: accept from %s", ErrBadState, s.state)
	}
	s.mu.Unlock()

	if err := s.marks.Resolve(); err != nil && !errors.Is(err, suggest.ErrNoMarks) {
		return fmt.Errorf("session: accept: %w", err)
	}
	if s.branch != nil {
		if err := s.branch.Merge(ctx); err != nil {
			return fmt.Errorf("session: accept: %w", err)
		}
	}

	s.mu.Lock()
	s.setStateLocked(StateClosed)
	s.mu.Unlock()
	s.publish(event.TopicSessionAccepted, nil)
	s.publish(event.TopicSuggestionCleared, nil)
	return nil
}

// Reject reverts all suggestion marks to their pre-AI content without
// touching user undo, discards the collaborative branch when one is
// active, and closes the session.
func (s *Session) Reject(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUserReviewing {
		s.mu.Unlock()
		return fmt.Errorf("%w: reject from %s", ErrBadState, s.state)
	}
	s.mu.Unlock()

	if err := s.marks.Revert(); err != nil && !errors.Is(err, suggest.ErrNoMarks) {
		return fmt.Errorf("session: reject: %w", err)
	}
	if s.branch != nil {
		if err := s.branch.Discard(ctx); err != nil {
			return fmt.Errorf("session: reject: %w", err)
		}
	}

	s.mu.Lock()
	s.setStateLocked(StateClosed)
	s.mu.Unlock()
	s.publish(event.TopicSessionRejected, nil)
	s.publish(event.TopicSuggestionCleared, nil)
	return nil
}

// Retry recovers from the error state. Transport failures resend the
// original request and return to thinking. Execution failures re-ask
// the model with a corrective message and return to ai-writing.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateError {
		return fmt.Errorf("%w: retry from %s", ErrBadState, s.state)
	}
	if s.failure == nil {
		return ErrNoFailure
	}

	switch s.failure.Kind {
	case FailExecution, FailStaleRebase:
		req, err := s.builder.BuildCorrection(s.lastReq, s.doc.Snapshot(), s.failure.Op, s.failure.Err)
		if err != nil {
			return err
		}
		s.lastReq = req
		s.failure = nil
		s.valFails = nil
		s.setStateLocked(StateAIWriting)
		s.startLocked(ctx, req)
	default:
		req := s.lastReq
		s.failure = nil
		s.valFails = nil
		s.setStateLocked(StateThinking)
		s.startLocked(ctx, req)
	}
	return nil
}

// Close cancels any in-flight stream and returns the session to
// closed. Applied steps stay in the document with their marks pending.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.state != StateClosed {
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()
}

// startLocked launches the stream consumer. Caller holds the lock.
func (s *Session) startLocked(ctx context.Context, req transport.Request) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	go func() {
		defer close(done)
		defer cancel()
		s.run(ctx, req)
	}()
}

// run consumes one model stream. Chunks are processed in arrival
// order; operation steps apply strictly sequentially.
func (s *Session) run(ctx context.Context, req transport.Request) {
	stream, err := s.tr.Stream(ctx, req)
	if err != nil {
		s.fail(FailTransport, "", err)
		return
	}

	parser := opstream.NewParser(s.doc.Snapshot())
	exec := executor.New(s.doc, s.marks, executor.WithStepDelay(s.stepDelay))
	applied := 0
	finished := false

	for chunk := range stream {
		switch chunk.Kind {
		case transport.ChunkText:
			s.enterWriting()
			s.publish(event.TopicSessionStreamText, event.StreamText{Text: chunk.Text})

		case transport.ChunkToolDelta:
			s.enterWriting()
			res := parser.Feed(chunk.CallID, chunk.ToolName, chunk.ArgumentDelta)
			if !s.handleResult(ctx, exec, parser, res, &applied) {
				return
			}

		case transport.ChunkToolDone:
			res := parser.Finish(chunk.CallID)
			if !s.handleResult(ctx, exec, parser, res, &applied) {
				return
			}

		case transport.ChunkError:
			s.fail(FailTransport, "", chunk.Err)
			return

		case transport.ChunkDone:
			finished = true
		}
	}

	if !finished {
		if ctx.Err() != nil {
			// Cancelled; Close already set the state.
			return
		}
		s.fail(FailTransport, "", transport.ErrStreamClosed)
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if applied == 0 && len(s.valFails) > 0 {
		// Nothing landed and at least one operation was rejected.
		// Surfacing user-reviewing with no marks would hide the failure.
		last := s.valFails[len(s.valFails)-1]
		s.mu.Unlock()
		s.fail(last.Kind, last.Op, last.Err)
		return
	}
	s.setStateLocked(StateUserReviewing)
	s.mu.Unlock()
}

// handleResult applies a committed operation or records a local
// validation failure. Returns false when the stream must stop.
func (s *Session) handleResult(ctx context.Context, exec *executor.Executor, parser *opstream.Parser, res opstream.Result, applied *int) bool {
	switch res.Status {
	case opstream.StatusValid:
		rc := rebase.Project(s.doc, s.marks)
		steps, err := exec.Execute(ctx, res.Op, rc)
		if err != nil {
			kind := FailExecution
			if errors.Is(err, rebase.ErrStaleRebase) {
				kind = FailStaleRebase
			}
			s.fail(kind, res.Op.Name(), err)
			return false
		}
		parser.Rebind(s.doc.Snapshot())
		*applied++
		s.publish(event.TopicSessionOperationApplied, event.OperationApplied{
			Tool:   res.Op.Name(),
			Blocks: len(steps),
		})
		s.publish(event.TopicSuggestionAdded, nil)

	case opstream.StatusInvalid:
		// Local to the operation; siblings keep streaming.
		s.mu.Lock()
		s.valFails = append(s.valFails, Failure{Kind: FailValidation, Err: res.Err})
		s.mu.Unlock()
	}
	return true
}

// enterWriting performs the thinking → ai-writing transition on the
// first streamed chunk. No-op in any other state.
func (s *Session) enterWriting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateThinking {
		s.setStateLocked(StateAIWriting)
	}
}

// fail records a failure and transitions to error, unless the session
// was closed while the stream was being torn down.
func (s *Session) fail(kind FailureKind, op string, err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	f := &Failure{Kind: kind, Op: op, Err: err}
	s.failure = f
	s.setStateLocked(StateError)
	s.mu.Unlock()

	s.publish(event.TopicSessionFailed, event.SessionFailure{Stage: kind.String(), Err: err})
}

// setStateLocked transitions state and publishes the change. Caller
// holds the lock.
func (s *Session) setStateLocked(to State) {
	from := s.state
	s.state = to
	if s.bus != nil {
		_ = s.bus.Publish(event.New(event.TopicSessionStateChanged, event.StateChange{
			From: from.String(),
			To:   to.String(),
		}, "session"))
	}
}

func (s *Session) publish(topic event.Topic, payload any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(event.New(topic, payload, "session"))
}
