// Package normalisers provides direct text extraction for text-native formats.
// Each normaliser reads one document class into ordered segments without
// calling the vision capability.
//
// Normalisers are handed to the extraction orchestrator at startup.
package normalisers
