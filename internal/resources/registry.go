// Package resources implements the resources/list, resources/read, and
// resources/templates/list surface: a thread-safe URI-keyed registry of
// resource providers, generalized from a code-registered tool registry to
// also support templated (parameterized) resource URIs.
package resources

import (
	"context"
	"fmt"
	"sync"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// Provider supplies the content of one concrete resource URI.
type Provider interface {
	// Read retrieves the current content of the resource.
	Read(ctx context.Context) (*protocol.Resource, error)

	// Definition returns the resource's metadata for client discovery.
	Definition() protocol.ResourceDefinition
}

// Registry is a thread-safe URI -> Provider map, plus a separate set of
// URI templates advertised for discovery only (resources/templates/list
// has no matching Read path; a template only becomes a readable resource
// once a client substitutes its variables and the result is registered, or
// a host-specific Provider resolves template URIs directly).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	templates []protocol.ResourceTemplate
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a resource provider for uri. It returns ErrAlreadyRegistered
// if uri is taken.
func (r *Registry) Register(uri string, provider Provider) error {
	if uri == "" {
		return internalerrors.New("resources", "Register", internalerrors.ErrBadRequest, fmt.Errorf("resource uri cannot be empty"))
	}
	if provider == nil {
		return internalerrors.New("resources", "Register", internalerrors.ErrBadRequest, fmt.Errorf("resource provider cannot be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[uri]; exists {
		return internalerrors.New("resources", "Register", internalerrors.ErrBadRequest, ErrAlreadyRegistered).
			WithContext("resource_uri", uri)
	}
	r.providers[uri] = provider
	return nil
}

// Unregister removes a previously registered resource. It is a no-op if uri
// was never registered.
func (r *Registry) Unregister(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, uri)
}

// RegisterTemplate adds a URI template to the resources/templates/list
// response. Templates are advertised independently of concrete providers.
func (r *Registry) RegisterTemplate(tmpl protocol.ResourceTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, tmpl)
}

// Read retrieves a resource by URI and reads its current content.
func (r *Registry) Read(ctx context.Context, uri string) (*protocol.Resource, error) {
	if uri == "" {
		return nil, internalerrors.New("resources", "Read", internalerrors.ErrBadRequest, fmt.Errorf("resource uri cannot be empty"))
	}

	r.mu.RLock()
	provider, exists := r.providers[uri]
	r.mu.RUnlock()

	if !exists {
		return nil, internalerrors.New("resources", "Read", internalerrors.ErrNotFound, ErrNotFound).
			WithContext("resource_uri", uri)
	}

	resource, err := provider.Read(ctx)
	if err != nil {
		return nil, internalerrors.New("resources", "Read", internalerrors.ErrInternal, fmt.Errorf("%w: %v", ErrReadFailed, err)).
			WithContext("resource_uri", uri)
	}
	return resource, nil
}

// List returns definitions for every registered resource, sorted by URI for
// a stable resources/list response.
func (r *Registry) List() []protocol.ResourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]protocol.ResourceDefinition, 0, len(r.providers))
	for _, provider := range r.providers {
		defs = append(defs, provider.Definition())
	}
	sortResourceDefinitions(defs)
	return defs
}

// ListTemplates returns every registered URI template, in registration
// order.
func (r *Registry) ListTemplates() []protocol.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.ResourceTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

func sortResourceDefinitions(defs []protocol.ResourceDefinition) {
	for i := 1; i < len(defs); i++ {
		for j := i; j > 0 && defs[j].URI < defs[j-1].URI; j-- {
			defs[j], defs[j-1] = defs[j-1], defs[j]
		}
	}
}
