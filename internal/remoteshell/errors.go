package remoteshell

import "fmt"

const (
	connectErrorTemplateConstant        = "unable to connect to %s: %v"
	sessionErrorTemplateConstant        = "remote session %s on %s failed: %v"
	hostKeyErrorTemplateConstant        = "host key verification failed for %s: %v"
	authenticationErrorTemplateConstant = "%s@%s rejected the offered credentials: %v"
	configurationErrorTemplateConstant  = "remote configuration invalid: %s"
	configurationCauseTemplateConstant  = "remote configuration invalid: %s: %v"
)

// ConnectError reports that the TCP connection or SSH handshake did not complete.
type ConnectError struct {
	Address string
	Cause   error
}

// Error describes the connection failure.
func (connectError ConnectError) Error() string {
	return fmt.Sprintf(connectErrorTemplateConstant, connectError.Address, connectError.Cause)
}

// Unwrap exposes the network failure.
func (connectError ConnectError) Unwrap() error {
	return connectError.Cause
}

// SessionError reports that an established connection failed while opening or running a session.
type SessionError struct {
	Address string
	Stage   string
	Cause   error
}

// Error describes the session failure.
func (sessionError SessionError) Error() string {
	return fmt.Sprintf(sessionErrorTemplateConstant, sessionError.Stage, sessionError.Address, sessionError.Cause)
}

// Unwrap exposes the session failure.
func (sessionError SessionError) Unwrap() error {
	return sessionError.Cause
}

// HostKeyError reports that the server presented a key absent from, or conflicting with, known_hosts.
type HostKeyError struct {
	Host  string
	Cause error
}

// Error describes the rejected host key.
func (hostKeyError HostKeyError) Error() string {
	return fmt.Sprintf(hostKeyErrorTemplateConstant, hostKeyError.Host, hostKeyError.Cause)
}

// Unwrap exposes the verification failure.
func (hostKeyError HostKeyError) Unwrap() error {
	return hostKeyError.Cause
}

// AuthenticationError reports that the server refused every offered authentication method.
type AuthenticationError struct {
	Address  string
	Username string
	Cause    error
}

// Error describes the rejected login.
func (authenticationError AuthenticationError) Error() string {
	return fmt.Sprintf(authenticationErrorTemplateConstant, authenticationError.Username, authenticationError.Address, authenticationError.Cause)
}

// Unwrap exposes the handshake failure.
func (authenticationError AuthenticationError) Unwrap() error {
	return authenticationError.Cause
}

// ConfigurationError reports an endpoint that cannot be used as configured.
type ConfigurationError struct {
	Message string
	Cause   error
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	if configurationError.Cause != nil {
		return fmt.Sprintf(configurationCauseTemplateConstant, configurationError.Message, configurationError.Cause)
	}
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Message)
}

// Unwrap exposes the configuration failure.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}
