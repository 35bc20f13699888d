package domain

// AbstentionAnswer is the fixed answer returned when the document does not
// contain the information needed to answer a question.
const AbstentionAnswer = "The information is not available in the provided document."

// Evidence is a retrieved chunk supporting a generated answer.
type Evidence struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Score is the similarity between the question and the chunk (higher is closer).
	Score float64
}

// QueryResult is the answer to a question together with its evidence.
type QueryResult struct {
	// DocumentID is the document that was queried.
	DocumentID string

	// Answer is the generated text, or AbstentionAnswer.
	Answer string

	// Abstained is true when Answer is the fixed abstention response.
	Abstained bool

	// Evidence lists the retrieved chunks in descending score order.
	Evidence []Evidence

	// Model is the generation model that produced the answer.
	Model string
}
