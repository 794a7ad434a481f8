//go:build !windows

package remoteshell_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	testUsernameConstant          = "sentinel"
	testPasswordConstant          = "correct horse"
	knownHostsFileNameConstant    = "known_hosts"
	sessionChannelTypeConstant    = "session"
	execRequestTypeConstant       = "exec"
	exitStatusRequestConstant     = "exit-status"
	loopbackListenAddressConstant = "127.0.0.1:0"
)

type sshTestServer struct {
	listener   net.Listener
	hostKey    ssh.Signer
	waitGroup  sync.WaitGroup
	commandsMu sync.Mutex
	commands   []string
}

func startSSHTestServer(testInstance *testing.T) *sshTestServer {
	testInstance.Helper()

	_, hostPrivateKey, generateError := ed25519.GenerateKey(rand.Reader)
	require.NoError(testInstance, generateError)
	hostKey, signerError := ssh.NewSignerFromKey(hostPrivateKey)
	require.NoError(testInstance, signerError)

	serverConfiguration := &ssh.ServerConfig{
		PasswordCallback: func(metadata ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if metadata.User() == testUsernameConstant && string(password) == testPasswordConstant {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("password rejected")
		},
	}
	serverConfiguration.AddHostKey(hostKey)

	listener, listenError := net.Listen("tcp", loopbackListenAddressConstant)
	require.NoError(testInstance, listenError)

	server := &sshTestServer{listener: listener, hostKey: hostKey}
	server.waitGroup.Add(1)
	go server.acceptLoop(serverConfiguration)
	testInstance.Cleanup(server.stop)
	return server
}

func (server *sshTestServer) host() string {
	return server.listener.Addr().(*net.TCPAddr).IP.String()
}

func (server *sshTestServer) port() int {
	return server.listener.Addr().(*net.TCPAddr).Port
}

func (server *sshTestServer) receivedCommands() []string {
	server.commandsMu.Lock()
	defer server.commandsMu.Unlock()
	return append([]string{}, server.commands...)
}

// writeKnownHosts records the server key in a fresh known_hosts file and returns its path.
func (server *sshTestServer) writeKnownHosts(testInstance *testing.T, publicKey ssh.PublicKey) string {
	testInstance.Helper()
	knownHostsPath := filepath.Join(testInstance.TempDir(), knownHostsFileNameConstant)
	address := net.JoinHostPort(server.host(), fmt.Sprint(server.port()))
	line := knownhosts.Line([]string{knownhosts.Normalize(address)}, publicKey)
	require.NoError(testInstance, os.WriteFile(knownHostsPath, []byte(line+"\n"), 0o600))
	return knownHostsPath
}

func (server *sshTestServer) stop() {
	_ = server.listener.Close()
	server.waitGroup.Wait()
}

func (server *sshTestServer) acceptLoop(serverConfiguration *ssh.ServerConfig) {
	defer server.waitGroup.Done()
	for {
		connection, acceptError := server.listener.Accept()
		if acceptError != nil {
			return
		}
		server.waitGroup.Add(1)
		go server.handleConnection(connection, serverConfiguration)
	}
}

func (server *sshTestServer) handleConnection(networkConnection net.Conn, serverConfiguration *ssh.ServerConfig) {
	defer server.waitGroup.Done()
	defer func() { _ = networkConnection.Close() }()

	serverConnection, channels, requests, handshakeError := ssh.NewServerConn(networkConnection, serverConfiguration)
	if handshakeError != nil {
		return
	}
	defer func() { _ = serverConnection.Close() }()
	go ssh.DiscardRequests(requests)

	connectionContext, cancelConnection := context.WithCancel(context.Background())
	defer cancelConnection()
	go func() {
		_ = serverConnection.Wait()
		cancelConnection()
	}()

	for newChannel := range channels {
		server.waitGroup.Add(1)
		go server.handleChannel(connectionContext, newChannel)
	}
}

func (server *sshTestServer) handleChannel(connectionContext context.Context, newChannel ssh.NewChannel) {
	defer server.waitGroup.Done()
	if newChannel.ChannelType() != sessionChannelTypeConstant {
		_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
		return
	}
	channel, requests, acceptError := newChannel.Accept()
	if acceptError != nil {
		return
	}
	defer func() { _ = channel.Close() }()

	for request := range requests {
		if request.Type != execRequestTypeConstant {
			if request.WantReply {
				_ = request.Reply(false, nil)
			}
			continue
		}
		var execRequest struct{ Command string }
		if unmarshalError := ssh.Unmarshal(request.Payload, &execRequest); unmarshalError != nil {
			_ = request.Reply(false, nil)
			return
		}
		_ = request.Reply(true, nil)

		server.commandsMu.Lock()
		server.commands = append(server.commands, execRequest.Command)
		server.commandsMu.Unlock()

		command := exec.CommandContext(connectionContext, "sh", "-c", execRequest.Command)
		command.WaitDelay = time.Second
		command.Stdin = channel
		command.Stdout = channel
		command.Stderr = channel.Stderr()
		exitCode := 0
		if runError := command.Run(); runError != nil {
			var exitError *exec.ExitError
			if errors.As(runError, &exitError) {
				exitCode = exitError.ExitCode()
			} else {
				exitCode = 1
			}
		}
		exitStatus := struct{ Status uint32 }{uint32(exitCode)}
		_, _ = channel.SendRequest(exitStatusRequestConstant, false, ssh.Marshal(&exitStatus))
		return
	}
}
