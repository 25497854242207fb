// Package rebase builds projected document views for AI operations and
// maps positions computed against a projection back onto the live
// document.
//
// The model authors operations against a clean projection: a document
// where every pending suggestion is provisionally resolved, so the AI
// never sees half-accepted markup. Because the live document keeps
// delete-marked blocks around until review, the projection and the live
// tree can disagree about which blocks exist; the rebase context owns
// that translation.
//
// A context is valid for exactly one live revision. If the document
// changes between projection and mapping (a user edit, another agent
// step), every mapping call fails closed with ErrStaleRebase rather
// than guessing at a position.
package rebase
