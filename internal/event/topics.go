package event

// Session event topics.
const (
	// TopicSessionStateChanged is published on every review-session
	// state transition.
	TopicSessionStateChanged Topic = "session.state.changed"

	// TopicSessionPromptSubmitted is published when a user prompt is
	// sent to the model.
	TopicSessionPromptSubmitted Topic = "session.prompt.submitted"

	// TopicSessionStreamText is published for each assistant text
	// fragment received while streaming.
	TopicSessionStreamText Topic = "session.stream.text"

	// TopicSessionOperationApplied is published after a streamed
	// operation is validated and written into the document.
	TopicSessionOperationApplied Topic = "session.operation.applied"

	// TopicSessionFailed is published when a session enters its error
	// state.
	TopicSessionFailed Topic = "session.failed"

	// TopicSessionAccepted is published when the user accepts a
	// completed response.
	TopicSessionAccepted Topic = "session.review.accepted"

	// TopicSessionRejected is published when the user rejects a
	// completed response.
	TopicSessionRejected Topic = "session.review.rejected"
)

// Document event topics.
const (
	// TopicDocumentApplied is published after a transaction commits.
	TopicDocumentApplied Topic = "document.transaction.applied"

	// TopicSuggestionAdded is published when a suggestion mark is
	// attached to a block.
	TopicSuggestionAdded Topic = "suggestion.added"

	// TopicSuggestionCleared is published when suggestion marks are
	// resolved or reverted.
	TopicSuggestionCleared Topic = "suggestion.cleared"
)

// Config event topics.
const (
	// TopicConfigChanged is published when the configuration is
	// reloaded from disk.
	TopicConfigChanged Topic = "config.changed"
)

// StateChange is the payload for TopicSessionStateChanged.
type StateChange struct {
	// From is the state being left.
	From string

	// To is the state being entered.
	To string
}

// StreamText is the payload for TopicSessionStreamText.
type StreamText struct {
	// Text is the assistant text fragment.
	Text string
}

// OperationApplied is the payload for TopicSessionOperationApplied.
type OperationApplied struct {
	// Tool is the tool name of the applied operation.
	Tool string

	// Blocks is the number of blocks the operation touched.
	Blocks int
}

// DocumentApplied is the payload for TopicDocumentApplied.
type DocumentApplied struct {
	// Label names the applied transaction.
	Label string

	// Origin identifies the transaction's author.
	Origin string

	// Revision is the document revision after the transaction.
	Revision uint64

	// Blocks is the number of blocks the transaction changed.
	Blocks int
}

// SessionFailure is the payload for TopicSessionFailed.
type SessionFailure struct {
	// Stage names the pipeline stage that failed.
	Stage string

	// Err is the failure.
	Err error
}
