// Package cli constructs the sentinelctl command-line interface. It wires the
// Cobra command hierarchy, the configuration loader and structured logging,
// and composes the PowerShell bridge with its local and SSH runners, the
// function catalogue and the event sinks.
package cli
