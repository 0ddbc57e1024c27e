// Package mcp exposes the knowledge base search engine as an MCP stdio
// server with two tools: search_kb runs the hybrid pipeline and returns
// ranked entries, kb_status reports corpus size and engine state.
//
// The server owns the engine lifecycle: Serve initializes it, blocks on
// the stdio transport, and disposes it on shutdown. Protocol traffic owns
// stdout; anything worth logging goes to stderr.
package mcp
