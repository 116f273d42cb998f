// Package driving provides interfaces for primary/inbound ports: the
// operations the CLI (or another session surface) invokes on the core.
package driving
