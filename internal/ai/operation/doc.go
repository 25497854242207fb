// Package operation defines the structured edit instructions the model
// emits as tool calls, their wire format, and the schema validation run
// before an operation may touch a document.
//
// Operations form a closed tagged union: Add, Update, Delete. Dispatch
// is always by type switch so an unhandled variant is a compile-time
// gap, not a runtime string-lookup miss.
package operation
