package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

func newPair(t *testing.T) (server, client *Transport) {
	t.Helper()

	upgraded := make(chan *Transport, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr, err := Accept(w, r)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		upgraded <- tr
	}))
	t.Cleanup(srv.Close)

	url := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client = New(conn)

	select {
	case server = <-upgraded:
	case <-time.After(2 * time.Second):
		t.Fatal("server never upgraded")
	}
	return server, client
}

func TestTransport_SendIsRecvOnOtherSide(t *testing.T) {
	server, client := newPair(t)
	defer server.Close()
	defer client.Close()

	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: float64(1), Method: "ping"}
	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := server.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.(*protocol.Request).Method != "ping" {
		t.Errorf("Method = %q, want ping", got.(*protocol.Request).Method)
	}
}

func TestTransport_RecvDrainsBatchedFrame(t *testing.T) {
	server, client := newPair(t)
	defer server.Close()
	defer client.Close()

	batch := []byte(`[{"jsonrpc":"2.0","id":1,"method":"ping"},{"jsonrpc":"2.0","id":2,"method":"ping"}]`)
	if err := client.conn.WriteMessage(websocket.TextMessage, batch); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	first, err := server.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv first: %v", err)
	}
	second, err := server.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv second: %v", err)
	}
	if first.(*protocol.Request).ID != float64(1) {
		t.Errorf("first id = %v, want 1", first.(*protocol.Request).ID)
	}
	if second.(*protocol.Request).ID != float64(2) {
		t.Errorf("second id = %v, want 2", second.(*protocol.Request).ID)
	}
}

func TestTransport_CloseUnblocksRecv(t *testing.T) {
	server, client := newPair(t)
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		_, err := server.Recv(context.Background())
		done <- err
	}()

	if err := server.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
}

func TestTransport_CloseIsIdempotent(t *testing.T) {
	server, client := newPair(t)
	defer client.Close()

	if err := server.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
