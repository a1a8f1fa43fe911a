// Package logstream is a client for the execution log service: it follows
// the logs of remote task executions live over a websocket push channel and
// retrieves historical logs over REST, with an optional bridge that
// republishes everything to NATS.
//
// # Architecture
//
// The client is three independent surfaces over one wire vocabulary:
//
//	┌──────────────────┐  websocket   ┌─────────────────────────┐
//	│  stream.Manager  │◄────────────►│                         │
//	│  (push channel)  │              │                         │
//	└────────┬─────────┘              │  execution log service  │
//	         │ callbacks              │                         │
//	         ▼                        │                         │
//	┌──────────────────┐     REST     │                         │
//	│     consumer     │   queries    │                         │
//	│                  │  ┌───────────┤                         │
//	└────────┬─────────┘  │           └─────────────────────────┘
//	         │            ▼
//	         │   ┌──────────────────┐
//	         │   │   query.Client   │
//	         │   │ (historical logs)│
//	         │   └──────────────────┘
//	         ▼
//	┌──────────────────┐    NATS
//	│   relay.Relay    ├─────────────► subjects per execution
//	│   (optional)     │
//	└──────────────────┘
//
// stream.Manager owns live delivery: one handle per execution, an explicit
// connection state machine, keepalive answers, and exponential backoff
// reconnection. query.Client fetches backlog and raw files in single
// attempts; it never retries and never touches push channel state, so the
// two sides cannot corrupt each other. relay.Relay turns stream callbacks
// into NATS publishes for fan-out to other systems.
//
// # Packages
//
// Client surfaces:
//   - stream: live log streaming over websocket push channels
//   - query: historical log retrieval (unified, stdout, stderr)
//   - relay: republishing streamed logs to NATS subjects
//
// Wiring:
//   - config: layered configuration (JSON/YAML files, environment, flags)
//   - token: access token sources (static, environment, file)
//   - natsclient: NATS connection management for the relay
//
// Infrastructure:
//   - errors: classified errors (transient, fatal, invalid)
//   - metric: Prometheus metrics and the diagnostics endpoint
//   - health: health monitoring with error-message sanitization
//   - types: the wire vocabulary (log entries, frames, states, filters)
//   - pkg/retry: caller-side retry with exponential backoff
//   - pkg/timestamp: canonical unix-millisecond timestamps
//   - pkg/tlsutil: client TLS material for https and wss endpoints
//   - testutil: in-process fake of the service for tests
//
// # Usage
//
// Follow an execution live:
//
//	manager, err := stream.NewManager(stream.Config{
//	    BaseURL: "https://api.example.com",
//	}, token.Env("LOGSTREAM_TOKEN"))
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	handle, err := manager.Connect(ctx, "exec-42", stream.Callbacks{
//	    OnMessage: func(entry types.LogEntry) { fmt.Println(entry.Message) },
//	})
//	if err != nil {
//	    return err
//	}
//	<-handle.Done()
//
// Fetch the backlog afterwards:
//
//	client, err := query.NewClient(query.Config{
//	    BaseURL: "https://api.example.com",
//	}, token.Env("LOGSTREAM_TOKEN"))
//	if err != nil {
//	    return err
//	}
//	logs, err := client.GetUnifiedLogs(ctx, "exec-42", query.FormatStructured,
//	    types.QueryFilter{Level: types.LevelError, Lines: 200})
//
// The cmd/logstream binary wraps both surfaces as the tail and fetch
// subcommands.
package logstream
