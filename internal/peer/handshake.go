package peer

import (
	"context"
	"fmt"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// handleInitialize answers an inbound initialize request. Only meaningful
// for a server-role Peer; a client-role Peer answering initialize (which a
// well-behaved MCP client never issues to it) gets a protocol error instead
// of silently accepting it.
func (p *Peer) handleInitialize(ctx context.Context, req *protocol.Request) (any, *protocol.Error) {
	if p.role != RoleServer {
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "initialize is a client->server method", nil)
	}

	var params protocol.InitializeParams
	if req.Params != nil {
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid initialize params", err.Error())
		}
	}

	version, ok := protocol.NegotiateVersion(params.ProtocolVersion)
	if !ok {
		p.Close()
		return nil, protocol.NewError(protocol.CodeInvalidParams,
			fmt.Sprintf("unsupported protocol version %q, supported: %v", params.ProtocolVersion, protocol.SupportedVersions), nil)
	}

	p.peerInfo.Store(&params.ClientInfo)
	p.peerCaps.Store(&params.Capabilities)

	return protocol.InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      p.info,
		Capabilities:    p.serverCaps,
	}, nil
}

// Initialize drives the client side of the handshake: send initialize, wait
// for the result, then send notifications/initialized. It is only valid to
// call on a client-role Peer, exactly once.
func (p *Peer) Initialize(ctx context.Context, clientCaps protocol.ClientCapabilities) (*protocol.InitializeResult, error) {
	if p.role != RoleClient {
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrBadRequest, fmt.Errorf("Initialize is a client-role operation"))
	}

	p.clientCaps = clientCaps

	resp, err := p.SendRequest(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		ClientInfo:      p.info,
		Capabilities:    clientCaps,
	})
	if err != nil {
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrInternal, err)
	}
	if resp.IsError() {
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrInternal, resp.Error)
	}

	var result protocol.InitializeResult
	if err := remarshal(resp.Result, &result); err != nil {
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrInternal, err)
	}

	if _, ok := protocol.NegotiateVersion(result.ProtocolVersion); !ok {
		p.Close()
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrBadRequest,
			fmt.Errorf("unsupported protocol version from server: %q, supported: %v", result.ProtocolVersion, protocol.SupportedVersions))
	}

	p.peerInfo.Store(&result.ServerInfo)
	p.peerServerCaps.Store(&result.Capabilities)
	p.initialized.Store(true)

	if err := p.SendNotification(ctx, protocol.NotificationInitialized, protocol.InitializedParams{}); err != nil {
		return nil, internalerrors.New("peer", "Initialize", internalerrors.ErrInternal, err)
	}

	return &result, nil
}

// remarshal round-trips v's JSON-decoded `any` (typically the result field
// of a Response, which decodes to map[string]any) into a concrete struct.
func remarshal(from any, to any) error {
	raw, err := marshalParams(from)
	if err != nil {
		return err
	}
	return unmarshalParams(raw, to)
}
