// Package execshell runs external interpreters as local child processes.
//
// OSCommandRunner wraps os/exec. It places every child in its own process
// group so that a timeout or a caller cancellation tears down the whole process
// tree, and it bounds how much standard error is retained.
package execshell
