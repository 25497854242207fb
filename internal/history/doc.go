// Package history provides undo/redo management for block documents.
//
// Each recorded entry pairs a forward transaction with its inverse so
// that undo and redo replay exact document states. Entries can be
// grouped so that a compound edit undoes as a single unit.
//
// Transactions with an agent origin are never recorded: the AI step
// executor's intermediate micro-edits must not appear in user-facing
// undo. Reverting AI output is the review controller's job, not undo's.
package history
