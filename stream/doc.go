// Package stream maintains live log streaming connections to the execution
// log service over websockets.
//
// A Manager opens one push channel per execution. Each channel is owned by a
// Handle that drives an explicit connection state machine, answers keepalive
// probes, and applies an exponential backoff policy when the transport drops.
//
// # Connection Lifecycle
//
// Each handle moves through the states in types.ConnectionState:
//
//	disconnected -> connecting -> connected
//	connected    -> disconnected (normal close: server finished the stream)
//	connected    -> reconnecting (abnormal close, budget remaining)
//	reconnecting -> connecting   (after the backoff delay)
//	reconnecting -> failed       (budget exhausted; terminal)
//
// The error state is a momentary signal fired between a transport failure
// and the authoritative transition that follows it; a handle never rests in
// error. A handle that reached failed never reconnects: call Connect again
// for a fresh handle.
//
// The reconnect-attempt counter resets to zero only when a transport opens
// successfully. A scheduled retry alone never resets it, so a server that
// keeps refusing connections exhausts the budget instead of looping forever.
//
// # Backoff Policy
//
// The k-th retry waits min(initial * multiplier^(k-1), max). With the
// defaults of one second, 1.5, and thirty seconds, the first five retries
// wait 1s, 1.5s, 2.25s, ~3.4s, and ~5.1s. At most one reconnection timer is
// pending per handle at any time; Disconnect cancels it.
//
// # Frames
//
// The server pushes JSON frames tagged by a "type" field:
//
//	{"type":"log_line","data":{...}}         -> OnMessage
//	{"type":"execution_status","data":{...}} -> OnStatusUpdate
//	{"type":"error","message":"..."}         -> OnError
//	{"type":"ping"}                          -> answered with a pong, internally
//
// Every ping is answered with exactly one {"type":"pong","timestamp":...}
// frame before the next inbound frame is processed. Malformed and unknown
// frames are logged and dropped; they never close the connection.
//
// # Usage
//
//	manager, err := stream.NewManager(stream.Config{
//	    BaseURL: "https://api.example.com",
//	}, token.Static(accessToken))
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	handle, err := manager.Connect(ctx, "exec-42", stream.Callbacks{
//	    OnMessage: func(entry types.LogEntry) {
//	        fmt.Println(entry.Message)
//	    },
//	    OnStateChange: func(state types.ConnectionState) {
//	        log.Printf("stream: %s", state)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//
//	<-handle.Done()
//
// Connect fails synchronously, without touching the network, when the token
// provider cannot supply a token. The access token rides in the channel URL's
// query string; the package logs only sanitized URLs with the query removed.
//
// # Callbacks and Disconnect
//
// All callbacks for a handle fire from that handle's goroutine, one at a
// time. Disconnect is idempotent, cancels any pending reconnection timer,
// and guarantees that no callback fires after it returns; in particular no
// later connecting or reconnecting transition is ever observed. Calling
// Disconnect from inside a callback is safe.
//
// Transport errors always arrive paired with a state transition, so a
// consumer can tell "transient, will retry" (reconnecting follows) from
// "permanent, give up" (failed follows, wrapped as ErrMaxRetriesExceeded).
package stream
