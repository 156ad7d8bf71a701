package peer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// handleRequest answers one inbound Request. It always produces exactly one
// Response (success or JSON-RPC error), per spec.md's no-lost-responses
// invariant, and always sends it even if the handler's context was
// cancelled mid-flight (the cancelled case reports CodeRequestCancelled
// rather than silently dropping the reply).
func (p *Peer) handleRequest(ctx context.Context, req *protocol.Request) {
	if err := req.Validate(); err != nil {
		p.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidRequest, err.Error(), nil))
		return
	}

	if !p.initialized.Load() && req.Method != protocol.MethodInitialize && req.Method != protocol.MethodPing {
		p.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidRequest, "peer not initialized", nil))
		return
	}

	if family := protocol.FamilyOf(req.Method); family != protocol.FamilyNone && !p.peerAdvertises(family) {
		p.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeMethodNotFound,
			fmt.Sprintf("method not capable: %s", req.Method), nil))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	remove := p.inflight.track(req.ID, cancel)
	defer remove()

	rc := RequestContext{RequestID: req.ID, peer: p, ProgressToken: progressTokenOf(req.Params), SessionID: p.sessionID}
	reqCtx = contextWithRequestContext(reqCtx, rc)

	result, rpcErr := p.dispatchMethod(reqCtx, req)

	select {
	case <-reqCtx.Done():
		// The issuer asked us to stop; report cancellation even if the
		// handler returned its own error after observing ctx.Done(), since
		// that error is an artifact of cancellation, not a real failure.
		rpcErr = protocol.NewError(protocol.CodeRequestCancelled, "request cancelled", nil)
		result = nil
	default:
	}

	p.reply(ctx, req.ID, result, rpcErr)
}

func (p *Peer) dispatchMethod(ctx context.Context, req *protocol.Request) (any, *protocol.Error) {
	switch req.Method {
	case protocol.MethodPing:
		return struct{}{}, nil

	case protocol.MethodInitialize:
		return p.handleInitialize(ctx, req)

	case protocol.MethodToolsList:
		var params protocol.ToolsListParams
		_ = unmarshalParams(req.Params, &params)
		return protocol.ToolsListResult{Tools: p.tools.List()}, nil

	case protocol.MethodToolsCall:
		return p.handleToolsCall(ctx, req)

	case protocol.MethodResourcesList:
		return protocol.ResourcesListResult{Resources: p.resources.List()}, nil

	case protocol.MethodResourcesTemplatesList:
		return protocol.ResourcesTemplatesListResult{ResourceTemplates: p.resources.ListTemplates()}, nil

	case protocol.MethodResourcesRead:
		return p.handleResourcesRead(ctx, req)

	case protocol.MethodPromptsList:
		var params protocol.PromptsListParams
		_ = unmarshalParams(req.Params, &params)
		result, err := p.serverHandler.ListPrompts(ctx, params)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	case protocol.MethodPromptsGet:
		var params protocol.PromptsGetParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
		}
		result, err := p.serverHandler.GetPrompt(ctx, params)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	case protocol.MethodLoggingSetLevel:
		var params protocol.LoggingSetLevelParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
		}
		if err := p.serverHandler.SetLoggingLevel(ctx, params); err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return struct{}{}, nil

	case protocol.MethodCompletionComplete:
		var params protocol.CompletionCompleteParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
		}
		result, err := p.serverHandler.Complete(ctx, params)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	case protocol.MethodSamplingCreateMessage:
		var params protocol.CreateMessageParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
		}
		result, err := p.clientHandler.CreateMessage(ctx, params)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	case protocol.MethodRootsList:
		result, err := p.clientHandler.ListRoots(ctx)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	case protocol.MethodElicitationCreate:
		var params protocol.ElicitationCreateParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
		}
		result, err := p.clientHandler.Elicit(ctx, params)
		if err != nil {
			return nil, toRPCError(protocol.CodeInternalError, err)
		}
		return result, nil

	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (p *Peer) handleToolsCall(ctx context.Context, req *protocol.Request) (any, *protocol.Error) {
	if req.Params == nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "params required", nil)
	}
	var params protocol.ToolsCallParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
	}
	if params.Name == "" {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "tool name is required", nil)
	}

	args, err := json.Marshal(params.Arguments)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid tool arguments", nil)
	}

	result, err := p.tools.Call(ctx, params.Name, args)
	if err != nil {
		return nil, toolCallError(params.Name, err)
	}
	return result, nil
}

func (p *Peer) handleResourcesRead(ctx context.Context, req *protocol.Request) (any, *protocol.Error) {
	if req.Params == nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "params required", nil)
	}
	var params protocol.ResourcesReadParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, err.Error(), nil)
	}
	if params.URI == "" {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "resource uri is required", nil)
	}

	resource, err := p.resources.Read(ctx, params.URI)
	if err != nil {
		return nil, resourceReadError(params.URI, err)
	}

	return protocol.ResourcesReadResult{
		Contents: []protocol.ResourceContent{{
			URI:      resource.URI,
			MimeType: resource.MimeType,
			Text:     resource.Text,
		}},
	}, nil
}

// reply sends a Response for id, building either the success or error shape.
// If ctx is already done (the caller's transport is gone), reply is skipped
// since there is nowhere to send it.
func (p *Peer) reply(ctx context.Context, id any, result any, rpcErr *protocol.Error) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	resp := &protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}

	if err := p.sender.Send(ctx, resp); err != nil {
		p.logger.Warn("failed to send response", "id", id, "error", err)
	}
}

func (p *Peer) peerAdvertises(family protocol.Family) bool {
	switch p.role {
	case RoleServer:
		// A server answers client->server requests (tools, resources,
		// prompts, logging) gated by the CLIENT's declared need is not a
		// thing in MCP; gating here is on what the SERVER itself
		// advertises in its own capabilities.
		return p.serverCaps.HasFamily(family)
	case RoleClient:
		return p.clientCaps.HasFamily(family)
	default:
		return false
	}
}

// remoteAdvertises reports whether the OTHER end of the handshake declared
// the given family, for gating outbound SendRequest calls (peer.go) rather
// than inbound dispatch. A client-role Peer issues client->server requests
// gated on the server's capabilities (peerServerCaps); a server-role Peer
// issues server->client requests gated on the client's (peerCaps). Before
// the handshake completes, neither is populated and every gated family
// reports false.
func (p *Peer) remoteAdvertises(family protocol.Family) bool {
	switch p.role {
	case RoleClient:
		caps := p.peerServerCaps.Load()
		if caps == nil {
			return false
		}
		return caps.HasFamily(family)
	case RoleServer:
		caps := p.peerCaps.Load()
		if caps == nil {
			return false
		}
		return caps.HasFamily(family)
	default:
		return false
	}
}

func progressTokenOf(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var withMeta struct {
		Meta *protocol.RequestMeta `json:"_meta"`
	}
	if err := json.Unmarshal(raw, &withMeta); err != nil || withMeta.Meta == nil {
		return ""
	}
	return string(withMeta.Meta.ProgressToken)
}

func toRPCError(code int, err error) *protocol.Error {
	return protocol.NewError(code, err.Error(), nil)
}
