package document

import "errors"

// Errors returned by document operations.
var (
	// ErrBlockNotFound indicates a referenced block ID does not exist.
	ErrBlockNotFound = errors.New("document: block not found")

	// ErrDuplicateID indicates an inserted block's ID already exists.
	ErrDuplicateID = errors.New("document: duplicate block id")

	// ErrEmptyID indicates a block with an empty ID was supplied.
	ErrEmptyID = errors.New("document: empty block id")

	// ErrInvalidAnchor indicates an Add position references an unusable anchor.
	ErrInvalidAnchor = errors.New("document: invalid anchor position")

	// ErrEmptyTransaction indicates a transaction with no edits was applied.
	ErrEmptyTransaction = errors.New("document: empty transaction")
)
