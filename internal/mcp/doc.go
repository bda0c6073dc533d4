// Package mcp implements the client side of MCP (Model Context Protocol).
//
// A Client connects to a server either by spawning it as a child process
// and speaking over its standard streams, or by dialing a TCP socket.
// Messages are newline-delimited JSON-RPC 2.0. After the initialize
// handshake the client lists the server's tools and invokes them by name.
//
// Only one request is in flight per connection. Responses are matched to
// requests by id; replies to abandoned requests and server-initiated
// messages are discarded.
package mcp
