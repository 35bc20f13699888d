package mcp

import (
	"os"

	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Registry owns documents, ingestion and question answering.
	Registry driving.DocumentRegistry

	// ReadFile loads a local file for ingest_document. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Registry == nil {
		return ErrMissingRegistry
	}
	if p.ReadFile == nil {
		p.ReadFile = os.ReadFile
	}
	return nil
}
