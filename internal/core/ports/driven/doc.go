// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): embedding and generative model services,
// classifiers, passage storage, index persistence, and prompt templates.
package driven
