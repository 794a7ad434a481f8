// Package bridge turns a logical PowerShell function call into an external
// process or remote session invocation and back into structured data.
//
// The Bridge composes a dot-source-then-invoke-then-serialize command from a
// script, a function name and a ParameterSet, runs it against an
// ExecutionTarget under a RetryPolicy, and decodes the ConvertTo-Json output.
// Every failure is returned as a *Failure tagged with a FailureKind. Lifecycle
// events go to an EventSink and never carry parameter values.
//
// A Bridge holds only immutable configuration and is safe for concurrent use.
package bridge
