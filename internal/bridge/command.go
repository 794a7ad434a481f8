package bridge

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/temirov/sentinelctl/internal/execshell"
)

const (
	noProfileFlagConstant                 = "-NoProfile"
	nonInteractiveFlagConstant            = "-NonInteractive"
	commandFlagConstant                   = "-Command"
	encodedCommandFlagConstant            = "-EncodedCommand"
	dotSourceTemplateConstant             = ". %s; %s"
	serializationTemplateConstant         = "%s | ConvertTo-Json -Depth %d"
	remoteBootstrapTemplateConstant       = "$sentinelScriptBody = [Console]::In.ReadToEnd(); . ([scriptblock]::Create($sentinelScriptBody)); %s"
	argumentSeparatorConstant             = " "
	defaultSerializationDepthConstant     = 5
	invalidFunctionNameTemplateConstant   = "function name %q is not a valid PowerShell command name"
	emptyFunctionNameMessageConstant      = "function name must not be empty"
	remoteEncodingFailureTemplateConstant = "unable to encode remote command: %v"
)

var functionNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(-[A-Za-z0-9]+)*$`)

// RemoteCommand is the command line and standard input sent over a remote session.
type RemoteCommand struct {
	CommandLine   string
	StandardInput []byte
}

// CommandComposer builds the dot-source, invoke and serialize command understood by the external runtime.
type CommandComposer struct {
	interpreter        execshell.CommandName
	serializationDepth int
}

// NewCommandComposer constructs a composer for the interpreter with the ConvertTo-Json depth.
func NewCommandComposer(interpreter execshell.CommandName, serializationDepth int) CommandComposer {
	if len(strings.TrimSpace(string(interpreter))) == 0 {
		interpreter = execshell.CommandPowerShellCore
	}
	if serializationDepth <= 0 {
		serializationDepth = defaultSerializationDepthConstant
	}
	return CommandComposer{interpreter: interpreter, serializationDepth: serializationDepth}
}

// ValidateFunctionName rejects names that are empty or could smuggle extra statements into the command.
func ValidateFunctionName(functionName string) error {
	if len(functionName) == 0 {
		return NewValidationFailure(emptyFunctionNameMessageConstant, nil)
	}
	if !functionNamePattern.MatchString(functionName) {
		return NewValidationFailure(fmt.Sprintf(invalidFunctionNameTemplateConstant, functionName), nil)
	}
	return nil
}

// InvocationStatement renders `<function> <fragments> | ConvertTo-Json -Depth <depth>`.
func (composer CommandComposer) InvocationStatement(functionName string, fragments []string) string {
	statementParts := append([]string{functionName}, fragments...)
	return fmt.Sprintf(serializationTemplateConstant, strings.Join(statementParts, argumentSeparatorConstant), composer.serializationDepth)
}

// LocalScript renders the full script that dot-sources scriptPath before invoking the function.
func (composer CommandComposer) LocalScript(scriptPath string, functionName string, fragments []string) string {
	return fmt.Sprintf(dotSourceTemplateConstant, QuoteSingle(scriptPath), composer.InvocationStatement(functionName, fragments))
}

// LocalCommand builds the interpreter invocation with the composed script as one argument.
func (composer CommandComposer) LocalCommand(scriptPath string, functionName string, fragments []string) execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: composer.interpreter,
		Details: execshell.CommandDetails{
			Arguments: []string{
				noProfileFlagConstant,
				nonInteractiveFlagConstant,
				commandFlagConstant,
				composer.LocalScript(scriptPath, functionName, fragments),
			},
		},
	}
}

// RemoteBootstrap renders the statement run remotely: it dot-sources the script body read from
// standard input, then invokes and serializes the function.
func (composer CommandComposer) RemoteBootstrap(functionName string, fragments []string) string {
	return fmt.Sprintf(remoteBootstrapTemplateConstant, composer.InvocationStatement(functionName, fragments))
}

// RemoteCommand encodes the bootstrap as a UTF-16LE base64 -EncodedCommand so the remote shell only sees base64 text.
func (composer CommandComposer) RemoteCommand(scriptBody []byte, functionName string, fragments []string) (RemoteCommand, error) {
	encodedBootstrap, encodingError := EncodePowerShellCommand(composer.RemoteBootstrap(functionName, fragments))
	if encodingError != nil {
		return RemoteCommand{}, NewValidationFailure(fmt.Sprintf(remoteEncodingFailureTemplateConstant, encodingError), encodingError)
	}
	commandLine := strings.Join([]string{
		string(composer.interpreter),
		noProfileFlagConstant,
		nonInteractiveFlagConstant,
		encodedCommandFlagConstant,
		encodedBootstrap,
	}, argumentSeparatorConstant)
	duplicatedBody := make([]byte, len(scriptBody))
	copy(duplicatedBody, scriptBody)
	return RemoteCommand{CommandLine: commandLine, StandardInput: duplicatedBody}, nil
}

// EncodePowerShellCommand produces the base64 UTF-16LE form expected by -EncodedCommand.
func EncodePowerShellCommand(script string) (string, error) {
	utf16Encoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encodedScript, encodingError := utf16Encoder.String(script)
	if encodingError != nil {
		return "", encodingError
	}
	return base64.StdEncoding.EncodeToString([]byte(encodedScript)), nil
}
