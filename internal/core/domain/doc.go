// Package domain contains the core business entities and errors for the
// pre-visit screening pipeline: passages, chunks, the index manifest,
// conversation state, and the structured triage note.
//
// Types here have no dependencies on adapters or external services.
package domain
