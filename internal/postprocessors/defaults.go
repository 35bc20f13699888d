package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/medrag/internal/postprocessors/entities"
	"github.com/custodia-labs/medrag/internal/postprocessors/hasher"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("entities", buildEntities)
	r.Register("hasher", buildHasher)
}

// BuildPipeline constructs the configured pipeline from a registry.
// The hasher is appended when the configuration omits it, since indexing
// relies on content hashes.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	names := cfg.Processors
	if len(names) == 0 {
		names = domain.DefaultPipelineConfig().Processors
	}
	if names[0] != "chunker" {
		return nil, fmt.Errorf("pipeline must start with the chunker, got %q", names[0])
	}

	pipeline := NewPipeline()
	hashed := false
	for _, name := range names {
		processor, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		pipeline.Add(processor)
		hashed = hashed || name == "hasher"
	}
	if !hashed {
		pipeline.Add(hasher.New())
	}

	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 800)
//   - overlap (int): Overlapping characters between chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildEntities creates an entities processor from generic config.
// Supported config keys:
//   - keep_unmatched (bool): keep entities not found in the chunk text (default: false)
func buildEntities(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []entities.Option
	if keep, ok := cfg["keep_unmatched"].(bool); ok {
		opts = append(opts, entities.WithKeepUnmatched(keep))
	}
	return entities.New(opts...), nil
}

func buildHasher(_ map[string]any) (driven.PostProcessor, error) {
	return hasher.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
