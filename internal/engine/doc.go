// Package engine owns the open checklist session: reorder, note and
// completion edits, debounced persistence through an ordered write queue,
// and reconciliation with snapshots pushed by the backend.
//
// All mutating methods are safe for concurrent use, but the presentation
// layer is expected to be the single caller. Writes are fire-and-forget;
// their outcome is reported through a Notifier.
package engine
