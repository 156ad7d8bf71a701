package toolrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// Tool is an executable MCP tool. Call receives the raw arguments object
// from tools/call params so tools may validate and decode it on their own
// terms (struct unmarshal, JSON Schema check, or both).
type Tool interface {
	// Definition returns the tool's metadata for client discovery.
	Definition() protocol.ToolDefinition

	// Call executes the tool. Implementations should prefer returning a
	// ToolsCallResult with IsError set over returning a Go error: the
	// latter is reserved for router-level failures (bad arguments, a
	// cancelled context) rather than domain-level tool failures the
	// client should see as part of a normal result.
	Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error)
}

// TextResult builds a successful ToolsCallResult carrying a single text
// content item.
func TextResult(text string) *protocol.ToolsCallResult {
	return &protocol.ToolsCallResult{
		Content: []protocol.Content{protocol.TextContent(text)},
	}
}

// StructuredResult builds a successful ToolsCallResult carrying both a
// human-readable text summary and a machine-readable structured payload.
func StructuredResult(text string, structured any) *protocol.ToolsCallResult {
	return &protocol.ToolsCallResult{
		Content:           []protocol.Content{protocol.TextContent(text)},
		StructuredContent: structured,
	}
}

// JSON builds a successful ToolsCallResult carrying value as structured
// content, mirrored into a text item via "%v" formatting. This is the
// direct Go equivalent of the Rust SDK's Json<T> wrapper: there, the type
// system marks a return value for structured + mirrored-text encoding; here
// a handler calls JSON explicitly at the point it returns.
func JSON(value any) *protocol.ToolsCallResult {
	return StructuredResult(fmt.Sprintf("%v", value), value)
}

// ErrorResult builds a ToolsCallResult representing a domain-level tool
// failure. Per spec.md §4.6 this is still a successful JSON-RPC response
// (IsError is a result field, not a protocol error) so the client's model
// can see and reason about the failure.
func ErrorResult(message string) *protocol.ToolsCallResult {
	return &protocol.ToolsCallResult{
		Content: []protocol.Content{protocol.TextContent(message)},
		IsError: true,
	}
}
