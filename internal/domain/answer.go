package domain

import "context"

// Citation is a (type, id) reference into the candidate set, enriched with
// display fields after validation.
type Citation struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// AnswerMeta carries retrieval diagnostics alongside a result.
type AnswerMeta struct {
	CandidateCount int `json:"candidate_count"`
	LexicalCount   int `json:"lexical_count"`
}

// AnswerResult is the typed outcome of one grounded-answer evaluation.
// Every evaluation resolves to a well-formed result; NoAnswer results carry
// the reason in Warning.
type AnswerResult struct {
	OK         bool        `json:"ok"`
	NoAnswer   bool        `json:"no_answer"`
	Answer     string      `json:"answer,omitempty"`
	Citations  []Citation  `json:"citations"`
	Confidence float64     `json:"confidence"`
	Warning    string      `json:"warning,omitempty"`
	Meta       *AnswerMeta `json:"meta,omitempty"`
}

// PayloadItem is a candidate projection sent to the generative model.
type PayloadItem struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	URL       string  `json:"url,omitempty"`
	Snippet   string  `json:"snippet"`
	ContactID string  `json:"contact_id,omitempty"`
	Score     float64 `json:"score"`
}

// AnswerPayload is the structured request for the generative model.
type AnswerPayload struct {
	Query  string        `json:"query"`
	Rules  []string      `json:"rules"`
	Schema string        `json:"schema"`
	Items  []PayloadItem `json:"items"`
}

// AnswerModel is the opaque generative call. Implementations return the
// raw response text; parsing and validation stay with the caller.
type AnswerModel interface {
	GenerateAnswer(ctx context.Context, payload AnswerPayload) (string, error)
}
