package remoteshell

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/temirov/sentinelctl/internal/execshell"
)

const (
	defaultPortConstant                  = 22
	tcpNetworkConstant                   = "tcp"
	unixNetworkConstant                  = "unix"
	agentSocketEnvironmentConstant       = "SSH_AUTH_SOCK"
	sessionStageOpenConstant             = "open"
	sessionStageRunConstant              = "run"
	missingHostMessageConstant           = "host must not be empty"
	missingUsernameMessageConstant       = "username could not be determined"
	missingAuthenticationMessageConstant = "no password, private key, or SSH agent available"
	missingKnownHostsMessageConstant     = "known_hosts path must be set unless host key verification is explicitly disabled"
	unreadableKnownHostsMessageConstant  = "unable to load known_hosts"
	unreadablePrivateKeyMessageConstant  = "unable to load private key"
	remoteTerminatedExitCodeConstant     = -1
	authenticationRejectedMarkerConstant = "ssh: unable to authenticate"
)

// Endpoint describes how to reach and authenticate to a remote host.
type Endpoint struct {
	Host                            string
	Port                            int
	Username                        string
	Password                        string
	PrivateKeyPath                  string
	KnownHostsPath                  string
	InsecureSkipHostKeyVerification bool
	ConnectTimeout                  time.Duration
}

// Address returns host:port with the default SSH port applied.
func (endpoint Endpoint) Address() string {
	port := endpoint.Port
	if port <= 0 {
		port = defaultPortConstant
	}
	return net.JoinHostPort(strings.TrimSpace(endpoint.Host), strconv.Itoa(port))
}

// Command is a command line executed by the remote login shell, with bytes fed to its standard input.
type Command struct {
	CommandLine   string
	StandardInput []byte
}

// ContextDialer opens network connections.
type ContextDialer interface {
	DialContext(ctx context.Context, network string, address string) (net.Conn, error)
}

// Options configure a Client.
type Options struct {
	Dialer             ContextDialer
	AgentSocket        string
	StandardErrorLimit int
}

// Client executes commands over SSH. A Client holds no connections between calls and is safe for concurrent use.
type Client struct {
	dialer             ContextDialer
	agentSocket        string
	standardErrorLimit int
}

// NewClient constructs a Client. The agent socket defaults to SSH_AUTH_SOCK.
func NewClient(options Options) *Client {
	dialer := options.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	agentSocket := options.AgentSocket
	if len(agentSocket) == 0 {
		agentSocket = os.Getenv(agentSocketEnvironmentConstant)
	}
	return &Client{dialer: dialer, agentSocket: agentSocket, standardErrorLimit: options.StandardErrorLimit}
}

// Run connects to endpoint, executes command in a fresh session and tears everything down before returning.
// A done context closes the connection and is reported as the context error.
func (client *Client) Run(executionContext context.Context, endpoint Endpoint, command Command) (execshell.ExecutionResult, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return execshell.ExecutionResult{}, contextError
	}

	clientConfiguration, rejectedHostKey, releaseAuthentication, configurationError := client.clientConfiguration(endpoint)
	if configurationError != nil {
		return execshell.ExecutionResult{}, configurationError
	}
	defer releaseAuthentication()

	address := endpoint.Address()
	networkConnection, dialError := client.dialer.DialContext(executionContext, tcpNetworkConstant, address)
	if dialError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return execshell.ExecutionResult{}, contextError
		}
		return execshell.ExecutionResult{}, ConnectError{Address: address, Cause: dialError}
	}
	defer func() { _ = networkConnection.Close() }()
	stopClosingOnDone := context.AfterFunc(executionContext, func() { _ = networkConnection.Close() })
	defer stopClosingOnDone()

	if endpoint.ConnectTimeout > 0 {
		_ = networkConnection.SetDeadline(time.Now().Add(endpoint.ConnectTimeout))
	}
	clientConnection, channels, requests, handshakeError := ssh.NewClientConn(networkConnection, address, clientConfiguration)
	if handshakeError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return execshell.ExecutionResult{}, contextError
		}
		if hostKeyFailure := rejectedHostKey(); hostKeyFailure != nil {
			return execshell.ExecutionResult{}, HostKeyError{Host: endpoint.Host, Cause: hostKeyFailure}
		}
		if strings.Contains(handshakeError.Error(), authenticationRejectedMarkerConstant) {
			return execshell.ExecutionResult{}, AuthenticationError{Address: address, Username: clientConfiguration.User, Cause: handshakeError}
		}
		return execshell.ExecutionResult{}, ConnectError{Address: address, Cause: handshakeError}
	}
	_ = networkConnection.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(clientConnection, channels, requests)
	defer func() { _ = sshClient.Close() }()

	session, sessionError := sshClient.NewSession()
	if sessionError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return execshell.ExecutionResult{}, contextError
		}
		return execshell.ExecutionResult{}, SessionError{Address: address, Stage: sessionStageOpenConstant, Cause: sessionError}
	}
	defer func() { _ = session.Close() }()
	stopSignalingOnDone := context.AfterFunc(executionContext, func() { _ = session.Signal(ssh.SIGKILL) })
	defer stopSignalingOnDone()

	var standardOutput bytes.Buffer
	standardError := execshell.NewBoundedBuffer(client.standardErrorLimit)
	session.Stdin = bytes.NewReader(command.StandardInput)
	session.Stdout = &standardOutput
	session.Stderr = standardError

	runError := session.Run(command.CommandLine)
	executionResult := execshell.ExecutionResult{
		StandardOutput:         standardOutput.String(),
		StandardError:          standardError.String(),
		StandardErrorTruncated: standardError.Truncated(),
	}

	if runError == nil {
		return executionResult, nil
	}
	if contextError := executionContext.Err(); contextError != nil {
		executionResult.ExitCode = remoteTerminatedExitCodeConstant
		return executionResult, contextError
	}
	var exitError *ssh.ExitError
	if errors.As(runError, &exitError) {
		executionResult.ExitCode = exitError.ExitStatus()
		return executionResult, nil
	}
	return executionResult, SessionError{Address: address, Stage: sessionStageRunConstant, Cause: runError}
}

// clientConfiguration assembles authentication and host key verification for endpoint. The returned accessor
// reports the host key failure seen during the handshake, if any, and the release function frees agent resources.
func (client *Client) clientConfiguration(endpoint Endpoint) (*ssh.ClientConfig, func() error, func(), error) {
	if len(strings.TrimSpace(endpoint.Host)) == 0 {
		return nil, nil, nil, ConfigurationError{Message: missingHostMessageConstant}
	}

	username := strings.TrimSpace(endpoint.Username)
	if len(username) == 0 {
		currentUser, userError := user.Current()
		if userError != nil || len(currentUser.Username) == 0 {
			return nil, nil, nil, ConfigurationError{Message: missingUsernameMessageConstant, Cause: userError}
		}
		username = currentUser.Username
	}

	hostKeyCallback, hostKeyError := hostKeyCallbackFor(endpoint)
	if hostKeyError != nil {
		return nil, nil, nil, hostKeyError
	}
	recordingCallback, rejectedHostKey := recordHostKeyFailures(hostKeyCallback)

	authenticationMethods, releaseAuthentication, authenticationError := client.authenticationMethods(endpoint)
	if authenticationError != nil {
		return nil, nil, nil, authenticationError
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            authenticationMethods,
		HostKeyCallback: recordingCallback,
		Timeout:         endpoint.ConnectTimeout,
	}, rejectedHostKey, releaseAuthentication, nil
}

func hostKeyCallbackFor(endpoint Endpoint) (ssh.HostKeyCallback, error) {
	if endpoint.InsecureSkipHostKeyVerification {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	knownHostsPath := strings.TrimSpace(endpoint.KnownHostsPath)
	if len(knownHostsPath) == 0 {
		return nil, ConfigurationError{Message: missingKnownHostsMessageConstant}
	}
	callback, loadError := knownhosts.New(knownHostsPath)
	if loadError != nil {
		return nil, ConfigurationError{Message: unreadableKnownHostsMessageConstant, Cause: loadError}
	}
	return callback, nil
}

func recordHostKeyFailures(callback ssh.HostKeyCallback) (ssh.HostKeyCallback, func() error) {
	var failureMutex sync.Mutex
	var recordedFailure error
	recordingCallback := func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		verificationError := callback(hostname, remote, key)
		if verificationError != nil {
			failureMutex.Lock()
			recordedFailure = verificationError
			failureMutex.Unlock()
		}
		return verificationError
	}
	rejectedHostKey := func() error {
		failureMutex.Lock()
		defer failureMutex.Unlock()
		return recordedFailure
	}
	return recordingCallback, rejectedHostKey
}

func (client *Client) authenticationMethods(endpoint Endpoint) ([]ssh.AuthMethod, func(), error) {
	var authenticationMethods []ssh.AuthMethod
	releaseAuthentication := func() {}

	if len(strings.TrimSpace(endpoint.PrivateKeyPath)) > 0 {
		privateKeyData, readError := os.ReadFile(endpoint.PrivateKeyPath)
		if readError != nil {
			return nil, nil, ConfigurationError{Message: unreadablePrivateKeyMessageConstant, Cause: readError}
		}
		signer, parseError := ssh.ParsePrivateKey(privateKeyData)
		if parseError != nil {
			return nil, nil, ConfigurationError{Message: unreadablePrivateKeyMessageConstant, Cause: parseError}
		}
		authenticationMethods = append(authenticationMethods, ssh.PublicKeys(signer))
	}

	if len(endpoint.Password) > 0 {
		password := endpoint.Password
		authenticationMethods = append(authenticationMethods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_ string, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for questionIndex := range questions {
					answers[questionIndex] = password
				}
				return answers, nil
			}),
		)
	}

	if len(authenticationMethods) == 0 && len(client.agentSocket) > 0 {
		agentConnection, agentDialError := net.Dial(unixNetworkConstant, client.agentSocket)
		if agentDialError == nil {
			agentClient := agent.NewClient(agentConnection)
			authenticationMethods = append(authenticationMethods, ssh.PublicKeysCallback(agentClient.Signers))
			releaseAuthentication = func() { _ = agentConnection.Close() }
		}
	}

	if len(authenticationMethods) == 0 {
		return nil, nil, ConfigurationError{Message: missingAuthenticationMessageConstant}
	}
	return authenticationMethods, releaseAuthentication, nil
}
