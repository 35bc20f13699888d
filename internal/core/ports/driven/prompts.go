package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system instruction for answer synthesis.
	// It must tell the model to emit the abstention marker when the context is insufficient.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptVisionAnalysis asks the vision model for a page transcription and
	// layout analysis as JSON. The template expects a %d placeholder for the page number.
	PromptVisionAnalysis = "vision_analysis"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// If no store is set, the service uses its built-in prompt.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}
