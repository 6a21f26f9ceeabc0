package answer

import "github.com/kailas-cloud/answerdex/internal/domain"

// answerRules is the fixed instruction list sent with every request.
var answerRules = []string{
	"Answer using only the supplied items; never invent facts.",
	"If the items cannot answer the question, set no_answer to true.",
	"Every answer must cite at least one item by its type and id.",
	"Never cite an item that is not in the supplied list.",
}

// answerSchema describes the structured response the model must return.
const answerSchema = `Respond with a single JSON object: ` +
	`{"no_answer": boolean, "answer": string, ` +
	`"citations": [{"type": string, "id": string}], ` +
	`"confidence": number between 0 and 1, "notes": optional string}`

// buildPayload assembles the grounded request from the fused candidates only.
func buildPayload(query string, candidates []domain.Candidate) domain.AnswerPayload {
	items := make([]domain.PayloadItem, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		items = append(items, domain.PayloadItem{
			Type:      c.Type,
			ID:        c.ID,
			Label:     c.Label,
			URL:       c.URL,
			Snippet:   c.Snippet,
			ContactID: c.ContactID,
			Score:     c.Score,
		})
	}

	return domain.AnswerPayload{
		Query:  query,
		Rules:  answerRules,
		Schema: answerSchema,
		Items:  items,
	}
}
