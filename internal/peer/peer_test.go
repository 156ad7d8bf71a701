package peer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
)

// loopbackSender delivers every Send call straight into the paired Peer's
// HandleMessage, synchronously enough for deterministic tests while still
// exercising the real wire-shape (message values, not internal state).
type loopbackSender struct {
	mu   sync.Mutex
	peer *Peer
}

func (s *loopbackSender) Send(ctx context.Context, msg protocol.Message) error {
	s.mu.Lock()
	target := s.peer
	s.mu.Unlock()
	return target.HandleMessage(ctx, msg)
}

func newPair(t *testing.T, clientOpts, serverOpts Options) (client, server *Peer) {
	t.Helper()

	clientSender := &loopbackSender{}
	serverSender := &loopbackSender{}

	clientOpts.Role = RoleClient
	serverOpts.Role = RoleServer

	client = New(serverSender, clientOpts)
	server = New(clientSender, serverOpts)

	// clientSender is held by the server and must deliver to the client;
	// serverSender is held by the client and must deliver to the server.
	clientSender.peer = client
	serverSender.peer = server

	return client, server
}

type echoTool struct{}

func (echoTool) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{Name: "echo", InputSchema: map[string]any{"type": "object"}}
}

func (echoTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	var args struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, err
	}
	return toolrouter.TextResult(args.Message), nil
}

func TestHandshake_InitializeRoundTrip(t *testing.T) {
	t.Parallel()

	tools := toolrouter.New()
	if err := tools.Register("echo", echoTool{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "test-client", Version: "0.1"}},
		Options{
			Info:         protocol.Implementation{Name: "test-server", Version: "0.1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
			Tools:        tools,
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Initialize(ctx, protocol.ClientCapabilities{})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if result.ServerInfo.Name != "test-server" {
		t.Fatalf("Initialize() ServerInfo.Name = %q, want %q", result.ServerInfo.Name, "test-server")
	}
	if !client.Initialized() {
		t.Fatal("client.Initialized() = false after successful handshake")
	}

	waitFor(t, func() bool { return server.Initialized() })
}

func TestHandshake_ProtocolVersionMismatchRejected(t *testing.T) {
	t.Parallel()

	client, _ := newPair(t,
		Options{Info: protocol.Implementation{Name: "test-client", Version: "0.1"}},
		Options{
			Info:         protocol.Implementation{Name: "test-server", Version: "0.1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Bypass Initialize() (which always sends protocol.Version) to drive the
	// handshake with a version the server does not support.
	resp, err := client.SendRequest(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: "1999-01-01",
		ClientInfo:      protocol.Implementation{Name: "test-client", Version: "0.1"},
	})
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if !resp.IsError() {
		t.Fatal("SendRequest() with unsupported protocol version: want error response, got success")
	}
	if resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("error code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustInitialize(t *testing.T, client, server *Peer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Initialize(ctx, protocol.ClientCapabilities{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	waitFor(t, server.Initialized)
}

func TestToolsCall_RoundTrip(t *testing.T) {
	t.Parallel()

	tools := toolrouter.New()
	if err := tools.Register("echo", echoTool{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{
			Info:         protocol.Implementation{Name: "s", Version: "1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
			Tools:        tools,
		},
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodToolsCall, protocol.ToolsCallParams{
		Name:      "echo",
		Arguments: map[string]any{"message": "hi"},
	})
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if resp.IsError() {
		t.Fatalf("SendRequest() response error = %+v", resp.Error)
	}

	var result protocol.ToolsCallResult
	if err := remarshal(resp.Result, &result); err != nil {
		t.Fatalf("remarshal() error = %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Fatalf("tools/call result = %+v, want text content %q", result, "hi")
	}
}

func TestToolsCall_UnknownToolReturnsToolNotFoundCode(t *testing.T) {
	t.Parallel()

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{
			Info:         protocol.Implementation{Name: "s", Version: "1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
		},
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodToolsCall, protocol.ToolsCallParams{Name: "missing"})
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if !resp.IsError() {
		t.Fatal("SendRequest() for unknown tool: want error response, got success")
	}
	if resp.Error.Code != protocol.CodeToolNotFound {
		t.Fatalf("error code = %d, want %d", resp.Error.Code, protocol.CodeToolNotFound)
	}
}

// TestToolsCall_SchemaInvalidArgumentsReturnInvalidParamsCode locks in the
// lookup -> validate -> invoke pipeline: arguments missing a property the
// tool's input_schema requires never reach Tool.Call and come back as
// CodeInvalidParams, not a generic internal error.
func TestToolsCall_SchemaInvalidArgumentsReturnInvalidParamsCode(t *testing.T) {
	t.Parallel()

	tools := toolrouter.New()
	addTool := stubSchemaTool{
		def: protocol.ToolDefinition{
			Name: "add",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"a": map[string]any{"type": "number"}, "b": map[string]any{"type": "number"}},
				"required":   []string{"a", "b"},
			},
		},
	}
	if err := tools.Register("add", addTool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{
			Info:         protocol.Implementation{Name: "s", Version: "1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
			Tools:        tools,
		},
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodToolsCall, protocol.ToolsCallParams{
		Name:      "add",
		Arguments: map[string]any{"a": 1},
	})
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if !resp.IsError() {
		t.Fatal("SendRequest() with a missing required argument: want error response, got success")
	}
	if resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("error code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
	}
	if resp.Error.Data == nil {
		t.Fatal("error data: want a diagnostic path, got nil")
	}
}

type stubSchemaTool struct {
	def protocol.ToolDefinition
}

func (s stubSchemaTool) Definition() protocol.ToolDefinition { return s.def }

func (s stubSchemaTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	return toolrouter.TextResult("ok"), nil
}

func TestDispatch_RequestBeforeInitializeRejected(t *testing.T) {
	t.Parallel()

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{
			Info:         protocol.Implementation{Name: "s", Version: "1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
		},
	)
	_ = server

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if !resp.IsError() || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Fatalf("response = %+v, want CodeInvalidRequest error", resp)
	}
}

func TestDispatch_ListEndpointDefaultsToEmptyWithoutCapability(t *testing.T) {
	t.Parallel()

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{Info: protocol.Implementation{Name: "s", Version: "1"}},
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if resp.IsError() {
		t.Fatalf("response = %+v, want success (tools/list defaults to empty list without the tools capability)", resp)
	}

	var result protocol.ToolsListResult
	if err := remarshal(resp.Result, &result); err != nil {
		t.Fatalf("remarshal() error = %v", err)
	}
	if len(result.Tools) != 0 {
		t.Fatalf("Tools = %v, want empty", result.Tools)
	}
}

// TestSendRequest_CapabilityGatingFailsLocally locks in spec.md §4.3/§8's
// capability-gating invariant: issuing a request whose family the remote
// never advertised fails before any message reaches the transport, rather
// than round-tripping to get a JSON-RPC error back.
func TestSendRequest_CapabilityGatingFailsLocally(t *testing.T) {
	t.Parallel()

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{Info: protocol.Implementation{Name: "s", Version: "1"}}, // no Tools capability
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.SendRequest(ctx, protocol.MethodToolsCall, protocol.ToolsCallParams{Name: "anything"})
	if err == nil {
		t.Fatal("SendRequest() for an unadvertised family: want local error, got nil")
	}
	if !errors.Is(err, protocol.ErrNotCapable) {
		t.Fatalf("SendRequest() error = %v, want protocol.ErrNotCapable", err)
	}
}

func TestPing_DefaultHandling(t *testing.T) {
	t.Parallel()

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{Info: protocol.Implementation{Name: "s", Version: "1"}},
	)
	mustInitialize(t, client, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, protocol.MethodPing, nil)
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if resp.IsError() {
		t.Fatalf("ping response error = %+v, want success", resp.Error)
	}
}

func TestCancel_AbortsInFlightHandler(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	blockErr := errors.New("handler observed cancellation")

	tools := toolrouter.New()
	if err := tools.Register("slow", slowTool{started: started, blockErr: blockErr}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	client, server := newPair(t,
		Options{Info: protocol.Implementation{Name: "c", Version: "1"}},
		Options{
			Info:         protocol.Implementation{Name: "s", Version: "1"},
			Capabilities: protocol.Capabilities{Tools: &protocol.ToolsCapability{}},
			Tools:        tools,
		},
	)
	mustInitialize(t, client, server)

	id := client.outbound.NextID()
	ctx := context.Background()
	raw, _ := marshalParams(protocol.ToolsCallParams{Name: "slow"})
	wait, err := client.outbound.Register(ctx, id)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: id, Method: protocol.MethodToolsCall, Params: raw}
	if err := client.sender.Send(ctx, req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	<-started
	if err := client.Cancel(ctx, id, "client gave up"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	resp, err := wait()
	if err != nil {
		t.Fatalf("wait() error = %v", err)
	}
	if !resp.IsError() || resp.Error.Code != protocol.CodeRequestCancelled {
		t.Fatalf("response = %+v, want CodeRequestCancelled", resp)
	}
}

type slowTool struct {
	started  chan struct{}
	blockErr error
}

func (s slowTool) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{Name: "slow"}
}

func (s slowTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	close(s.started)
	<-ctx.Done()
	return nil, s.blockErr
}
