package credentials

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	readPasswordErrorTemplateConstant = "reading password: %w"
	emptyPasswordMessageConstant      = "password must not be empty"
)

// ErrNotATerminal indicates that an interactive prompt was requested without a terminal on standard input.
var ErrNotATerminal = errors.New("standard input is not a terminal")

// PasswordPrompter asks the operator for a secret.
type PasswordPrompter interface {
	PromptPassword(prompt string) (string, error)
}

// TerminalPrompter reads a password from a terminal without echoing it.
type TerminalPrompter struct {
	input        *os.File
	output       io.Writer
	isTerminal   func(fileDescriptor int) bool
	readPassword func(fileDescriptor int) ([]byte, error)
}

// NewTerminalPrompter prompts on output and reads from input; nil values fall back to stderr and stdin.
func NewTerminalPrompter(input *os.File, output io.Writer) *TerminalPrompter {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stderr
	}
	return &TerminalPrompter{input: input, output: output, isTerminal: term.IsTerminal, readPassword: term.ReadPassword}
}

// PromptPassword writes prompt and reads one line with echo disabled.
func (prompter *TerminalPrompter) PromptPassword(prompt string) (string, error) {
	fileDescriptor := int(prompter.input.Fd())
	if !prompter.isTerminal(fileDescriptor) {
		return "", ErrNotATerminal
	}
	fmt.Fprint(prompter.output, prompt)
	passwordBytes, readError := prompter.readPassword(fileDescriptor)
	fmt.Fprintln(prompter.output)
	if readError != nil {
		return "", fmt.Errorf(readPasswordErrorTemplateConstant, readError)
	}
	if len(passwordBytes) == 0 {
		return "", errors.New(emptyPasswordMessageConstant)
	}
	return string(passwordBytes), nil
}
