// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and questions
//   - LLMService: Generates answers from retrieved context
//   - VectorIndex: Namespaced vector storage and similarity search
//   - DocumentStore: Document record persistence
//   - BlobStore: Raw upload persistence
//   - EventPublisher: Progress event broadcast
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VisionService: Page analysis. Without it, PDFs are read from their text layer
//     and images are rejected at ingestion.
//   - PageSplitter: Splits PDFs into single pages for the vision service.
//   - TextExtractor: Direct text extraction for text-native formats.
//   - ConfigStore: Persisted settings. Defaults apply without it.
//   - PromptStore: User-editable prompts. Built-in prompts apply without it.
//   - AIConfigValidator: Connectivity checks for configured providers.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
