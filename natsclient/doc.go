// Package natsclient provides the NATS connection layer for the log relay.
//
// The client is deliberately publisher-oriented: the relay republishes log
// entries and status updates onto NATS subjects, and nothing in this module
// consumes from NATS. Subscription management, consumer groups, and stream
// provisioning belong to the systems that ingest the relayed logs.
//
// # Architecture
//
// nats.go already reconnects, buffers pending publishes, and exchanges
// protocol-level pings. The client adds what the relay needs on top:
//
//   - A Status enum (disconnected, connecting, connected, reconnecting)
//     derived from nats.go connection events, readable at any time.
//   - Startup retry: Connect wraps the initial dial in the retry package's
//     exponential backoff, so a relay started before its NATS server becomes
//     reachable converges instead of failing.
//   - Metrics: connection gauge, RTT gauge, and reconnect counter recorded
//     through the metric package.
//   - A drain-aware Close that flushes buffered publishes within a timeout.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("logstream-relay"),
//	    natsclient.WithMetrics(registry.CoreMetrics()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Publish(ctx, "logs.exec-1.stdout", payload)
//
// # JetStream
//
// JetStreamPublish performs an acknowledged write and accepts a message ID
// for server-side de-duplication, which the relay uses so a redelivered log
// entry is stored once:
//
//	err = client.JetStreamPublish(ctx, subject, payload, entry.ID)
//
// The JetStream context is initialized on Connect when the server supports
// it; against a core-only server JetStreamPublish returns ErrNotConnected
// while plain Publish keeps working.
//
// # Health
//
// Healthz snapshots the connection as a health.Status for the admin
// endpoint: connected is healthy, connecting and reconnecting are degraded,
// disconnected is unhealthy. GetSnapshot exposes the raw numbers
// (reconnects, RTT, last error) for logging or diagnostics.
//
// # Testing
//
// TestClient runs a real NATS server in a container:
//
//	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
//	tc.Client.Publish(ctx, "logs.exec-1.stdout", data)
//
// Cleanup is registered automatically through t.Cleanup.
package natsclient
