// Package ui renders bridge invocation events for CLI users.
//
// Messages stay short and human-readable while the structured fields carry
// invocation identifiers, failure kinds and attempt counts for log pipelines.
package ui
