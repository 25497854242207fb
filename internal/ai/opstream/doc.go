// Package opstream incrementally parses streamed tool-call arguments
// into validated operations.
//
// Model transports deliver tool-call arguments as JSON text fragments.
// A fragment boundary can fall anywhere, so malformed intermediate
// states are expected and never reported as errors. Each feed yields a
// three-valued result: incomplete (keep streaming), invalid (the call
// completed but failed decoding or validation), or valid (a committed
// operation). A call commits at most once; committed operations are
// retained in commit order, which equals the order the stream completed
// them.
package opstream
