package credentials

import (
	"context"
	"errors"
	"strings"
)

// ErrPrompterNotConfigured indicates that an interactive password was requested without a prompter.
var ErrPrompterNotConfigured = errors.New("password prompter not configured")

// PasswordRequest describes where a remote password should come from. Interactive wins over Source.
type PasswordRequest struct {
	Source      string
	Interactive bool
	Prompt      string
}

// PasswordResolver obtains remote passwords from a secret source or the operator.
type PasswordResolver struct {
	secretResolver SecretResolver
	prompter       PasswordPrompter
}

// NewPasswordResolver constructs a PasswordResolver; a nil secret resolver reads the real environment and filesystem.
func NewPasswordResolver(secretResolver SecretResolver, prompter PasswordPrompter) PasswordResolver {
	if secretResolver == nil {
		secretResolver = NewSecretResolver(nil, nil)
	}
	return PasswordResolver{secretResolver: secretResolver, prompter: prompter}
}

// ResolvePassword returns an empty password when the request names no source, leaving key or agent
// authentication to the transport.
func (resolver PasswordResolver) ResolvePassword(resolutionContext context.Context, request PasswordRequest) (string, error) {
	if request.Interactive {
		if resolver.prompter == nil {
			return "", ErrPrompterNotConfigured
		}
		return resolver.prompter.PromptPassword(request.Prompt)
	}
	if len(strings.TrimSpace(request.Source)) == 0 {
		return "", nil
	}
	source, parseError := ParseSecretSource(request.Source)
	if parseError != nil {
		return "", parseError
	}
	return resolver.secretResolver.ResolveSecret(resolutionContext, source)
}
