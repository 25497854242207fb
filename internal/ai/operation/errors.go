package operation

import "errors"

// Validation errors. All are reported per-operation; a validation
// failure never aborts sibling operations in the same stream.
var (
	// ErrUnknownTool indicates a tool call named no known operation.
	ErrUnknownTool = errors.New("operation: unknown tool name")

	// ErrMissingField indicates a required field is absent.
	ErrMissingField = errors.New("operation: missing required field")

	// ErrTargetNotFound indicates a referenced block does not exist in
	// the document view the operation was generated against.
	ErrTargetNotFound = errors.New("operation: target block not found")

	// ErrDuplicateIdentity indicates an Add supplies a block ID that
	// already exists. Re-applying a committed Add must fail here, never
	// silently duplicate.
	ErrDuplicateIdentity = errors.New("operation: duplicate block identity")

	// ErrBadAnchor indicates an Add position reference is unusable.
	ErrBadAnchor = errors.New("operation: invalid position reference")

	// ErrEmptyOperation indicates an operation with nothing to do.
	ErrEmptyOperation = errors.New("operation: empty operation")
)
