// Package rews provides a reconnecting WebSocket client.
//
// A Client wraps a single logical connection that transparently
// re-establishes itself after unexpected drops using exponential backoff.
// User callbacks registered at build time are rebound to every new
// underlying connection, so consumers observe one continuous session.
//
// Clients are built with the fluent Builder returned by Dial:
//
//	client, err := rews.Dial("wss://example.com/feed").
//		OnMessage(func(msg rews.Message) { ... }).
//		OnClose(func(ev rews.CloseEvent) { ... }).
//		Build()
//
// Reconnecting is enabled by default; call NoReconnect on the builder to
// make the first close terminal.
package rews
