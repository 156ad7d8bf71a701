package toolrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// Router implements thread-safe tool registration, discovery, and
// invocation for the tools/list and tools/call methods.
type Router struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// New creates an empty Router.
func New() *Router {
	return &Router{tools: make(map[string]Tool)}
}

// Register adds tool under name. It returns ErrAlreadyRegistered if the name
// is taken.
func (r *Router) Register(name string, tool Tool) error {
	if name == "" {
		return internalerrors.New("toolrouter", "Register", internalerrors.ErrBadRequest, fmt.Errorf("tool name cannot be empty"))
	}
	if tool == nil {
		return internalerrors.New("toolrouter", "Register", internalerrors.ErrBadRequest, fmt.Errorf("tool cannot be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return internalerrors.New("toolrouter", "Register", internalerrors.ErrBadRequest, ErrAlreadyRegistered).
			WithContext("tool_name", name)
	}
	r.tools[name] = tool
	return nil
}

// Unregister removes a previously registered tool. It is a no-op if the
// name was never registered.
func (r *Router) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name.
func (r *Router) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, internalerrors.New("toolrouter", "Get", internalerrors.ErrNotFound, ErrNotFound).
			WithContext("tool_name", name)
	}
	return tool, nil
}

// List returns definitions for every registered tool, sorted by name so
// tools/list responses are stable across calls.
func (r *Router) List() []protocol.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]protocol.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sortToolDefinitions(defs)
	return defs
}

// Call looks up name, validates arguments against the tool's declared
// input_schema, and only then invokes it: lookup -> validate -> invoke. A
// lookup failure is the caller-visible ErrNotFound; a schema failure, or a
// Tool.Call that rejects its own arguments after deserializing them, comes
// back wrapped around ErrInvalidArguments so callers can tell a bad request
// from an internal failure.
func (r *Router) Call(ctx context.Context, name string, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if err := validateArguments(tool.Definition().InputSchema, arguments); err != nil {
		return nil, internalerrors.New("toolrouter", "Call", internalerrors.ErrBadRequest, err).
			WithContext("tool_name", name)
	}

	result, err := tool.Call(ctx, arguments)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return nil, internalerrors.New("toolrouter", "Call", internalerrors.ErrBadRequest, err).
				WithContext("tool_name", name)
		}
		return nil, internalerrors.New("toolrouter", "Call", internalerrors.ErrInternal, err).
			WithContext("tool_name", name)
	}
	return result, nil
}

func sortToolDefinitions(defs []protocol.ToolDefinition) {
	for i := 1; i < len(defs); i++ {
		for j := i; j > 0 && defs[j].Name < defs[j-1].Name; j-- {
			defs[j], defs[j-1] = defs[j-1], defs[j]
		}
	}
}
