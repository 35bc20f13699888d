// Package tui provides the interactive terminal interface for medrag: a
// document dashboard with a live progress log and an ingestion progress view.
package tui

import (
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Registry manages documents, ingestion and questions.
	Registry driving.DocumentRegistry
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Registry == nil {
		return ErrMissingRegistry
	}
	return nil
}
