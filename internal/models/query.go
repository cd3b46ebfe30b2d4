package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a search or chat request carries no text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// ErrInvalidOffset is returned for a negative search offset.
var ErrInvalidOffset = errors.New("offset must not be negative")

// Search result limits.
const (
	DefaultSearchLimit = 12
	MaxSearchLimit     = 50
)

// SearchQuery represents a free-text product search request.
type SearchQuery struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	// Explain attaches each result's per-signal score contributions.
	Explain bool `json:"explain,omitempty"`
}

// Validate ensures the search query has text and normalizes the limit.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Offset < 0 {
		return ErrInvalidOffset
	}
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	return nil
}

// ChatQuery is a message sent to the shopping assistant.
type ChatQuery struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate ensures the chat message is not blank.
func (q *ChatQuery) Validate() error {
	if strings.TrimSpace(q.Message) == "" {
		return ErrEmptyQuery
	}
	return nil
}
