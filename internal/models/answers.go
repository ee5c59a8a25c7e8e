package models

// RetrievedSource is one FAQ returned by retrieval, with its similarity to the question.
// SimilarityScore is in [0, 100] with two decimals; it is a heuristic, not a probability.
type RetrievedSource struct {
	ID              string  `json:"id"`
	Question        string  `json:"question"`
	Answer          string  `json:"answer"`
	Category        string  `json:"category"`
	SimilarityScore float64 `json:"similarity_score"`
}

// PipelineResult is the answer to one question and the sources it was grounded on,
// most similar first.
type PipelineResult struct {
	Answer  string            `json:"answer"`
	Sources []RetrievedSource `json:"sources"`
}

// AskRequest represents the request body of the ask endpoint.
type AskRequest struct {
	Question string `json:"question" validate:"required,notblank,no_null_bytes,max=2000"`
}

// AskResponse represents the response of the ask endpoint.
// ProcessingTime is wall-clock seconds rounded to two decimals.
type AskResponse struct {
	Answer         string            `json:"answer"`
	Sources        []RetrievedSource `json:"sources"`
	ProcessingTime float64           `json:"processing_time"`
}
