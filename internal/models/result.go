package models

// RankedProduct is a single ranked hit with its score and explanation.
type RankedProduct struct {
	Product    *Product `json:"product"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Reasons    []string `json:"reasons,omitempty"`
	Backfilled bool     `json:"backfilled,omitempty"`
	Rank       int      `json:"rank"`
	// Explanation is filled in only when the request asked for it.
	Explanation []ScoreContribution `json:"explanation,omitempty"`
}

// ScoreContribution is the points one fired signal added to a score.
type ScoreContribution struct {
	Signal string  `json:"signal"`
	Points float64 `json:"points"`
	Phrase string  `json:"phrase,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*RankedProduct `json:"results"`
	Total     int              `json:"total"`
	QueryTime int64            `json:"query_time_ms"`
	Query     string           `json:"query"`
	// Suggestions holds alternative queries shown when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
	// DidYouMean holds catalog terms close to misspelled query words.
	DidYouMean []string `json:"did_you_mean,omitempty"`
}

// RecommendationResponse is returned by the personalized and related-product endpoints.
type RecommendationResponse struct {
	Results   []*RankedProduct `json:"results"`
	Profile   string           `json:"profile"`
	SessionID string           `json:"session_id,omitempty"`
	Cohort    string           `json:"cohort,omitempty"`
	ProductID string           `json:"product_id,omitempty"`
}

// ChatResponse is the assistant's reply: either a support answer or a product lookup.
type ChatResponse struct {
	Message      string           `json:"message"`
	SupportTopic string           `json:"support_topic,omitempty"`
	Products     []*RankedProduct `json:"products,omitempty"`
}
