// Package suggest tracks suggestion marks: transient annotations on
// blocks whose content was authored by the AI and is pending user
// review.
//
// The step executor applies proposed content directly to the live
// document and records a mark holding the block's original state. The
// mark set can then resolve all marks (accept: proposed content becomes
// final) or revert them (reject: original state is restored). Both
// resolutions run as agent-origin transactions so they never enter the
// user's undo history.
package suggest
