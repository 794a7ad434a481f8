// Package workspaces describes the Sentinel workspaces an operator can target and how they are enumerated.
package workspaces

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	workspaceNameParameterConstant = "WorkspaceName"
	resourceGroupParameterConstant = "ResourceGroup"
	subscriptionParameterConstant  = "SubscriptionId"
	noMatchTemplateConstant        = "%w: %q"
	ambiguousMatchTemplateConstant = "%w: %q matches %s"
	workspaceNameSeparatorConstant = ", "
)

var (
	// ErrNoWorkspaceMatch indicates that no workspace name contains the filter.
	ErrNoWorkspaceMatch = errors.New("no workspace matches")
	// ErrAmbiguousWorkspace indicates that several workspace names contain the filter.
	ErrAmbiguousWorkspace = errors.New("workspace filter is ambiguous")
)

// Workspace is one Log Analytics workspace with Sentinel enabled.
type Workspace struct {
	ID             string `mapstructure:"id" json:"id"`
	Name           string `mapstructure:"name" json:"name"`
	ResourceGroup  string `mapstructure:"resource_group" json:"resource_group"`
	SubscriptionID string `mapstructure:"subscription_id" json:"subscription_id"`
	TenantID       string `mapstructure:"tenant_id" json:"tenant_id"`
	TenantName     string `mapstructure:"tenant_name" json:"tenant_name"`
}

// ContextParameters returns the conventional SentinelManager parameters that locate the workspace.
func (workspace Workspace) ContextParameters() map[string]any {
	contextParameters := map[string]any{workspaceNameParameterConstant: workspace.Name}
	if len(workspace.ResourceGroup) > 0 {
		contextParameters[resourceGroupParameterConstant] = workspace.ResourceGroup
	}
	if len(workspace.SubscriptionID) > 0 {
		contextParameters[subscriptionParameterConstant] = workspace.SubscriptionID
	}
	return contextParameters
}

// Enumerator lists the workspaces visible to the operator.
type Enumerator interface {
	Workspaces(ctx context.Context) ([]Workspace, error)
}

// StaticEnumerator serves a fixed list, typically taken from configuration.
type StaticEnumerator struct {
	workspaces []Workspace
}

// NewStaticEnumerator copies workspaces into an enumerator.
func NewStaticEnumerator(workspaces []Workspace) StaticEnumerator {
	return StaticEnumerator{workspaces: slices.Clone(workspaces)}
}

// Workspaces returns a copy of the configured list.
func (enumerator StaticEnumerator) Workspaces(ctx context.Context) ([]Workspace, error) {
	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}
	return slices.Clone(enumerator.workspaces), nil
}

// CachingEnumerator memoizes another enumerator for a fixed time to live. It is safe for concurrent use.
type CachingEnumerator struct {
	source     Enumerator
	timeToLive time.Duration
	now        func() time.Time

	mutex     sync.Mutex
	cached    []Workspace
	expiresAt time.Time
}

// NewCachingEnumerator wraps source; a nil clock uses time.Now.
func NewCachingEnumerator(source Enumerator, timeToLive time.Duration, clock func() time.Time) *CachingEnumerator {
	if clock == nil {
		clock = time.Now
	}
	return &CachingEnumerator{source: source, timeToLive: timeToLive, now: clock}
}

// Workspaces returns the cached list while it is fresh and refreshes it from the source otherwise.
// Source failures are not cached.
func (enumerator *CachingEnumerator) Workspaces(ctx context.Context) ([]Workspace, error) {
	enumerator.mutex.Lock()
	defer enumerator.mutex.Unlock()

	if enumerator.cached != nil && enumerator.now().Before(enumerator.expiresAt) {
		return slices.Clone(enumerator.cached), nil
	}
	refreshed, sourceError := enumerator.source.Workspaces(ctx)
	if sourceError != nil {
		return nil, sourceError
	}
	enumerator.cached = slices.Clone(refreshed)
	if enumerator.cached == nil {
		enumerator.cached = []Workspace{}
	}
	enumerator.expiresAt = enumerator.now().Add(enumerator.timeToLive)
	return slices.Clone(enumerator.cached), nil
}

// Filter keeps workspaces whose name contains any of nameFilters, ignoring case. Blank filters are ignored
// and no filters keep everything.
func Filter(workspaces []Workspace, nameFilters []string) []Workspace {
	normalizedFilters := make([]string, 0, len(nameFilters))
	for _, nameFilter := range nameFilters {
		trimmedFilter := strings.ToLower(strings.TrimSpace(nameFilter))
		if len(trimmedFilter) > 0 {
			normalizedFilters = append(normalizedFilters, trimmedFilter)
		}
	}
	if len(normalizedFilters) == 0 {
		return slices.Clone(workspaces)
	}

	filtered := make([]Workspace, 0, len(workspaces))
	for _, workspace := range workspaces {
		normalizedName := strings.ToLower(workspace.Name)
		for _, normalizedFilter := range normalizedFilters {
			if strings.Contains(normalizedName, normalizedFilter) {
				filtered = append(filtered, workspace)
				break
			}
		}
	}
	return filtered
}

// Resolve selects the single workspace named by nameFilter. An exact case-insensitive name match wins over
// substring matches.
func Resolve(ctx context.Context, enumerator Enumerator, nameFilter string) (Workspace, error) {
	available, enumerationError := enumerator.Workspaces(ctx)
	if enumerationError != nil {
		return Workspace{}, enumerationError
	}
	trimmedFilter := strings.TrimSpace(nameFilter)
	for _, workspace := range available {
		if strings.EqualFold(workspace.Name, trimmedFilter) {
			return workspace, nil
		}
	}

	matches := Filter(available, []string{trimmedFilter})
	if len(trimmedFilter) == 0 || len(matches) == 0 {
		return Workspace{}, fmt.Errorf(noMatchTemplateConstant, ErrNoWorkspaceMatch, nameFilter)
	}
	if len(matches) > 1 {
		matchedNames := make([]string, 0, len(matches))
		for _, workspace := range matches {
			matchedNames = append(matchedNames, workspace.Name)
		}
		return Workspace{}, fmt.Errorf(ambiguousMatchTemplateConstant, ErrAmbiguousWorkspace, nameFilter, strings.Join(matchedNames, workspaceNameSeparatorConstant))
	}
	return matches[0], nil
}
