package models

import "time"

// QueryLog records one answered question.
type QueryLog struct {
	ID             int64             `json:"id"`
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	Sources        []RetrievedSource `json:"sources"`
	ProcessingTime *float64          `json:"processing_time"`
	SourceCount    int               `json:"source_count"`
	AvgSimilarity  *float64          `json:"avg_similarity"`
	IPAddress      *string           `json:"ip_address,omitempty"`
	UserAgent      *string           `json:"user_agent,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ListQueryLogsFilters represents query parameters for listing query logs
type ListQueryLogsFilters struct {
	Limit  int `form:"limit" validate:"omitempty,min=1"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// ListQueryLogsResponse represents the response for listing query logs
type ListQueryLogsResponse struct {
	Count  int        `json:"count"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Logs   []QueryLog `json:"logs"`
}

// Stats aggregates the knowledge base and query history.
// ChromaCount is the vector index size; the name is kept for existing clients.
type Stats struct {
	TotalFAQs         int64   `json:"total_faqs"`
	TotalQueries      int64   `json:"total_queries"`
	ChromaCount       int64   `json:"chroma_count"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	AvgSimilarity     float64 `json:"avg_similarity"`
}
