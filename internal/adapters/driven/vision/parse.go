// Package vision holds the response handling shared by the vision adapters.
package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// pageResponse is the JSON object the analysis prompt asks for.
type pageResponse struct {
	Text string `json:"text"`
	domain.PageAnalysis
}

// ParseAnalysis decodes a model reply into a VisionResult.
// The reply may wrap the JSON object in prose or code fences; the span from
// the first '{' to the last '}' is decoded. A reply without usable text is
// an error so the caller records the page as failed.
func ParseAnalysis(reply string) (*domain.VisionResult, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in vision reply", domain.ErrInvalidInput)
	}

	var resp pageResponse
	if err := json.Unmarshal([]byte(reply[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode vision reply: %w", domain.ErrInvalidInput, err)
	}

	res := &domain.VisionResult{
		Text:     strings.TrimSpace(resp.Text),
		Analysis: resp.PageAnalysis,
	}
	if res.IsEmpty() {
		return nil, fmt.Errorf("%w: vision reply has no text", domain.ErrInvalidInput)
	}
	return res, nil
}

// Prompt renders the page analysis instruction for a page number.
// A nil store, a load error or an empty template use the built-in prompt.
func Prompt(store driven.PromptStore, page int) string {
	tmpl := domain.VisionAnalysisPrompt
	if store != nil {
		if custom, err := store.Load(driven.PromptVisionAnalysis); err == nil && strings.TrimSpace(custom) != "" {
			tmpl = custom
		}
	}
	if !strings.Contains(tmpl, "%d") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, page)
}
