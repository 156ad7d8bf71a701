// Package transport defines the abstract framed-JSON-RPC contract
// (Sink/Source/Transport) a peer.Peer is driven through, per spec.md §4.2
// and §6.
//
// # Architecture
//
// The peer package only depends on this package's interfaces, never on a
// concrete transport. Concrete implementations live in sibling packages:
//
//	internal/transport/
//	├── transport.go      # Sink, Source, Transport, Loop
//	├── errors.go         # transport error taxonomy
//	├── stdio/             # newline-delimited JSON over an io.Reader/io.Writer
//	├── inprocess/         # paired in-memory channels, for tests and embedding
//	├── websocket/         # one JSON-RPC message per gorilla/websocket frame
//	└── httpstream/        # streamable-HTTP server transport + SSE resumption
//
// # Guarantees
//
// Every concrete Transport MUST guarantee the four properties spec.md §4.2
// lists: (a) Recv never surfaces a partial frame; (b) messages arrive in
// the order the remote wrote them on one logical stream; (c) Close lets a
// blocked Recv drain in-flight frames before returning ErrClosed; (d) a
// fatal Recv error is distinguishable from a clean close so the caller can
// decide whether to terminate the peer with transport-failed.
package transport
