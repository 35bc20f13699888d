// Package services implements the driving port interfaces.
//
// The Registry owns document lifecycle and coordinates the extraction
// orchestrator, the chunking pipeline, the indexing pipeline and the
// retriever. Services depend only on driven ports; adapters are wired in
// by cmd/medrag.
package services
