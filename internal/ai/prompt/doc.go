// Package prompt serializes document views and user requests into
// model-consumable messages.
//
// The document travels in one of three formats: markdown (cheapest,
// default), JSON (lossless, carries block IDs and props), or HTML
// (for models tuned on rich-text corpora). All three embed block IDs
// so the model can reference targets in its operations.
//
// Message templates are overridable from YAML so deployments can tune
// phrasing without rebuilding.
package prompt
