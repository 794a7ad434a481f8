// Package credentials locates the secrets used to authenticate remote sessions.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	secretSourceSeparatorConstant              = ":"
	environmentSecretSourceTypeValueConstant   = "env"
	fileSecretSourceTypeValueConstant          = "file"
	secretSourceMissingErrorMessageConstant    = "secret source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "secret file path must be provided"
	environmentSecretMissingTemplateConstant   = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read secret file %s: %w"
	fileSecretEmptyErrorTemplateConstant       = "secret file %s is empty"
	unsupportedSecretSourceTemplateConstant    = "unsupported secret source type %q"
	lineTerminatorCharactersConstant           = "\r\n"
)

// SecretSourceType enumerates the supported secret retrieval mechanisms.
type SecretSourceType string

// Secret source type enumerations.
const (
	SecretSourceTypeEnvironment SecretSourceType = SecretSourceType(environmentSecretSourceTypeValueConstant)
	SecretSourceTypeFile        SecretSourceType = SecretSourceType(fileSecretSourceTypeValueConstant)
)

// SecretSource specifies where a secret lives.
type SecretSource struct {
	Type      SecretSourceType
	Reference string
}

// SecretResolver retrieves secrets from configured sources.
type SecretResolver interface {
	ResolveSecret(resolutionContext context.Context, source SecretSource) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewSecretResolver creates a secret resolver with optional dependency overrides.
func NewSecretResolver(environmentLookup EnvironmentLookup, fileReader FileReader) SecretResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &secretResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
	}
}

// ParseSecretSource interprets `env:NAME` and `file:/path` declarations. A bare value names an environment variable.
func ParseSecretSource(sourceValue string) (SecretSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return SecretSource{}, errors.New(secretSourceMissingErrorMessageConstant)
	}

	components := strings.SplitN(trimmedValue, secretSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return SecretSource{Type: SecretSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentSecretSourceTypeValueConstant:
		if len(reference) == 0 {
			return SecretSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return SecretSource{Type: SecretSourceTypeEnvironment, Reference: reference}, nil
	case fileSecretSourceTypeValueConstant:
		if len(reference) == 0 {
			return SecretSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return SecretSource{Type: SecretSourceTypeFile, Reference: reference}, nil
	default:
		return SecretSource{}, fmt.Errorf(unsupportedSecretSourceTemplateConstant, sourceType)
	}
}

type secretResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

// ResolveSecret returns the secret verbatim except for a trailing line terminator in files.
func (resolver *secretResolver) ResolveSecret(resolutionContext context.Context, source SecretSource) (string, error) {
	if contextError := resolutionContext.Err(); contextError != nil {
		return "", contextError
	}
	switch source.Type {
	case SecretSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		if !found || len(value) == 0 {
			return "", fmt.Errorf(environmentSecretMissingTemplateConstant, source.Reference)
		}
		return value, nil
	case SecretSourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		secret := strings.TrimRight(string(contents), lineTerminatorCharactersConstant)
		if len(secret) == 0 {
			return "", fmt.Errorf(fileSecretEmptyErrorTemplateConstant, source.Reference)
		}
		return secret, nil
	default:
		return "", fmt.Errorf(unsupportedSecretSourceTemplateConstant, source.Type)
	}
}
