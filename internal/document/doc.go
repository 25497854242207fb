// Package document implements the block-based document model.
//
// A document is an ordered tree of blocks. Each block has a stable
// identity, a type tag, a property map, inline content (or table rows),
// and an ordered list of child blocks. The document tracks a revision
// identifier that advances on every mutation, and all mutations go
// through transactions so that a batch of edits is applied atomically
// and observed as a single revision step.
//
// Positions within a document are expressed as a block identity plus a
// byte offset into that block's flattened text. Higher layers (rebasing,
// step execution) map positions between document views; this package
// only guarantees that positions it hands out are valid for the revision
// they were computed against.
package document
