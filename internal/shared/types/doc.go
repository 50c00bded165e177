// Package types defines shared domain types used across the host:
// lifecycle states, source records, and lifecycle event payloads.
package types
