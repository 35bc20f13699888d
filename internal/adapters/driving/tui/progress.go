package tui

import (
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Share of an ingestion attributed to each phase. Extraction dominates
// because vision analysis is the slow step.
const (
	extractionStart = 0.05
	extractionShare = 0.60
	chunkingDone    = extractionStart + extractionShare + 0.05
	indexingShare   = 1 - chunkingDone
)

// ProgressFraction maps a progress event to overall ingestion completion in
// [0,1]. Returns false for events that carry no progress information.
func ProgressFraction(e domain.ProgressEvent) (float64, bool) {
	switch e.Kind {
	case domain.EventUpload:
		return 0, true
	case domain.EventExtractionStart:
		return extractionStart, true
	case domain.EventExtractionProgress:
		f, ok := number(e.Detail["fraction"])
		if !ok {
			return 0, false
		}
		return extractionStart + extractionShare*clamp(f), true
	case domain.EventChunkingDone:
		return chunkingDone, true
	case domain.EventIndexingProgress:
		indexed, ok1 := number(e.Detail["indexed"])
		total, ok2 := number(e.Detail["total"])
		if !ok1 || !ok2 || total <= 0 {
			return 0, false
		}
		return chunkingDone + indexingShare*clamp(indexed/total), true
	case domain.EventReady:
		return 1, true
	default:
		return 0, false
	}
}

// number reads a detail value published in-process (int) or decoded from JSON (float64).
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func clamp(f float64) float64 {
	return max(0, min(1, f))
}
