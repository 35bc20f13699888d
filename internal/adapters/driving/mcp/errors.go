// Package mcp provides an MCP (Model Context Protocol) server adapter for medrag.
// It lets AI assistants ingest medical documents and ask grounded questions about them.
package mcp

import "errors"

// ErrMissingRegistry is returned when the document registry is not provided.
var ErrMissingRegistry = errors.New("mcp: document registry is required")
