package peer

import (
	"context"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// MessageSender is the minimal transport contract a Peer needs: a way to
// push one JSON-RPC message (request, response, or notification) to the
// other end. Concrete transports (stdio, websocket, streamable HTTP,
// in-process) implement this; the Peer never assumes a particular framing,
// only that Send delivers messages in the order they are called.
type MessageSender interface {
	Send(ctx context.Context, message protocol.Message) error
}

// ClientHandler answers the server->client request surface: sampling,
// workspace roots, and elicitation. A client-role Peer is constructed with
// one; a server-role Peer has no use for it.
type ClientHandler interface {
	CreateMessage(ctx context.Context, params protocol.CreateMessageParams) (*protocol.CreateMessageResult, error)
	ListRoots(ctx context.Context) (*protocol.RootsListResult, error)
	Elicit(ctx context.Context, params protocol.ElicitationCreateParams) (*protocol.ElicitationCreateResult, error)
}

// UnimplementedClientHandler answers every server->client request with
// ErrNotCapable, for client Peers that advertised no such capability.
// Embedding it lets a caller override only the methods it supports.
type UnimplementedClientHandler struct{}

func (UnimplementedClientHandler) CreateMessage(ctx context.Context, params protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	return nil, protocol.ErrNotCapable
}

func (UnimplementedClientHandler) ListRoots(ctx context.Context) (*protocol.RootsListResult, error) {
	return nil, protocol.ErrNotCapable
}

func (UnimplementedClientHandler) Elicit(ctx context.Context, params protocol.ElicitationCreateParams) (*protocol.ElicitationCreateResult, error) {
	return nil, protocol.ErrNotCapable
}

// ServerHandler answers the client->server request surface that falls
// outside tool/resource routing: prompts, logging level, and completion.
// tools/list, tools/call, resources/list, resources/read, and
// resources/templates/list are always routed through the Peer's
// toolrouter.Router and resources.Registry instead, since those have a
// generic thread-safe implementation every server wants.
type ServerHandler interface {
	ListPrompts(ctx context.Context, params protocol.PromptsListParams) (*protocol.PromptsListResult, error)
	GetPrompt(ctx context.Context, params protocol.PromptsGetParams) (*protocol.PromptsGetResult, error)
	SetLoggingLevel(ctx context.Context, params protocol.LoggingSetLevelParams) error
	Complete(ctx context.Context, params protocol.CompletionCompleteParams) (*protocol.CompletionCompleteResult, error)
}

// UnimplementedServerHandler answers prompts/logging/completion with empty
// results or ErrNotCapable, for servers that advertise no prompts
// capability and do not implement completion.
type UnimplementedServerHandler struct{}

func (UnimplementedServerHandler) ListPrompts(ctx context.Context, params protocol.PromptsListParams) (*protocol.PromptsListResult, error) {
	return &protocol.PromptsListResult{Prompts: []protocol.PromptDefinition{}}, nil
}

func (UnimplementedServerHandler) GetPrompt(ctx context.Context, params protocol.PromptsGetParams) (*protocol.PromptsGetResult, error) {
	return nil, protocol.ErrNotCapable
}

func (UnimplementedServerHandler) SetLoggingLevel(ctx context.Context, params protocol.LoggingSetLevelParams) error {
	return nil
}

func (UnimplementedServerHandler) Complete(ctx context.Context, params protocol.CompletionCompleteParams) (*protocol.CompletionCompleteResult, error) {
	return nil, protocol.ErrNotCapable
}

// NotificationHandler receives server-originated notifications a client-role
// Peer does not answer with a response: log messages and list-changed
// signals. All methods are optional; the zero value drops every
// notification silently.
type NotificationHandler struct {
	OnLogMessage           func(protocol.LoggingMessageParams)
	OnResourceUpdated       func(protocol.ResourceUpdatedParams)
	OnToolsListChanged      func()
	OnResourcesListChanged  func()
	OnPromptsListChanged    func()
	OnRootsListChanged      func()
}
