package models

import "time"

// FAQ is a question/answer entry in the knowledge base.
type FAQ struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateFAQRequest represents the request to create an FAQ. It is also the shape
// of one item in an FAQ load file.
type CreateFAQRequest struct {
	Question string `json:"question" validate:"required,notblank,no_null_bytes,max=5000"`
	Answer   string `json:"answer" validate:"required,notblank,no_null_bytes,max=20000"`
	Category string `json:"category" validate:"required,notblank,no_null_bytes,max=100"`
}

// ListFAQsFilters represents filters for listing FAQs
type ListFAQsFilters struct {
	Category string `form:"category" validate:"omitempty,no_null_bytes,max=100"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

// ListFAQsResponse represents the response for listing FAQs
type ListFAQsResponse struct {
	Data   []FAQ `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// CategoryCount is the number of FAQs in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// LoadFailure describes one FAQ item that could not be stored or indexed.
type LoadFailure struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Error    string `json:"error"`
}

// LoadReport summarizes a bulk FAQ load.
type LoadReport struct {
	Total      int             `json:"total"`
	Loaded     int             `json:"loaded"`
	Failures   []LoadFailure   `json:"failures"`
	IndexCount int64           `json:"index_count"`
	Categories []CategoryCount `json:"categories"`
}

// ReindexResponse is returned after re-embedding every stored FAQ.
type ReindexResponse struct {
	Indexed    int           `json:"indexed"`
	Failures   []LoadFailure `json:"failures"`
	IndexCount int64         `json:"index_count"`
}
