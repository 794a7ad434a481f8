// Package remoteshell runs composed commands on remote hosts over SSH. Every Run opens its own
// connection and session and closes both before returning.
package remoteshell
