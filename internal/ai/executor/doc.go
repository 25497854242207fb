// Package executor converts validated operations into agent steps and
// applies them to the live document.
//
// An operation decomposes into the sub-edits a human would make: a
// select step highlighting the target, a replace step substituting the
// first unit of new content, then insert steps appending the rest
// incrementally. Every step applies as an agent-origin transaction, so
// none of them enter user undo, and each mutated block receives a
// suggestion mark for review.
//
// Steps of one operation apply strictly in order. A configurable delay
// paces them for animation; the delay is zero in non-interactive use.
// If a step fails, the operation's remaining steps are abandoned and a
// StepError reports what was applied; already-applied steps stay in the
// document. Rolling them back is an open design choice documented in
// DESIGN.md, not a silent fixup.
package executor
