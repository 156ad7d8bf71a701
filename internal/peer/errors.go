package peer

import (
	"errors"
	"fmt"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/resources"
	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
)

// ErrPeerClosed is returned by operations attempted after Close.
var ErrPeerClosed = errors.New("peer closed")

// toolCallError maps a toolrouter.Router.Call failure to CodeToolNotFound
// (method not found, with the tool name as data) for an unknown tool name,
// or to the standard invalid-params code when the tool's arguments failed
// schema validation or were rejected by the tool itself, falling back to a
// generic internal error for anything else.
func toolCallError(name string, err error) *protocol.Error {
	if errors.Is(err, toolrouter.ErrNotFound) {
		return protocol.NewError(protocol.CodeToolNotFound, "method not found", map[string]any{"tool": name})
	}
	if errors.Is(err, toolrouter.ErrInvalidArguments) {
		return protocol.NewError(protocol.CodeInvalidParams, fmt.Sprintf("invalid arguments for tool %s", name), err.Error())
	}
	return protocol.NewError(protocol.CodeInternalError, "tool execution failed", err.Error())
}

// resourceReadError maps a resources.Registry.Read failure to the MCP
// extension error code spec.md §7 assigns unknown resource URIs.
func resourceReadError(uri string, err error) *protocol.Error {
	if errors.Is(err, resources.ErrNotFound) {
		return protocol.NewError(protocol.CodeResourceNotFound, fmt.Sprintf("resource not found: %s", uri), nil)
	}
	return protocol.NewError(protocol.CodeInternalError, "failed to read resource", err.Error())
}
