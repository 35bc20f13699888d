package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrValidation", ErrValidation},
		{"ErrConflict", ErrConflict},
		{"ErrExtraction", ErrExtraction},
		{"ErrChunking", ErrChunking},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrRetrieval", ErrRetrieval},
		{"ErrNotReady", ErrNotReady},
		{"ErrSuperseded", ErrSuperseded},
		{"ErrCapabilityUnavailable", ErrCapabilityUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrValidation, ErrConflict, ErrExtraction, ErrChunking,
		ErrEmbedding, ErrRetrieval, ErrNotReady, ErrNotFound,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("batch 2: %w: %w", ErrEmbedding, errors.New("503"))
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.NotErrorIs(t, err, ErrExtraction)
}
