// Package registry holds the table of SentinelManager functions with their parameter schemas and
// dispatches calls against it through a single generic entry point.
package registry
