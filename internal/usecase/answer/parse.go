package answer

import (
	"encoding/json"
	"strings"
)

// malformedNotes is the fixed message attached when the model response
// could not be parsed.
const malformedNotes = "Model response was not valid structured output."

// modelResponse is the schema the generative model is expected to follow.
type modelResponse struct {
	NoAnswer   bool            `json:"no_answer"`
	Answer     string          `json:"answer"`
	Citations  []modelCitation `json:"citations"`
	Confidence float64         `json:"confidence"`
	Notes      string          `json:"notes"`
}

// modelCitation is a raw (type, id) pair as emitted by the model.
type modelCitation struct {
	Type string `json:"type"`
	ID   flexID `json:"id"`
}

// flexID tolerates both string and numeric ids in model output.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// parseModelResponse strictly parses raw model text into the schema.
// The second return value tags the result: false means malformed, and the
// caller must branch on the tag, never on field presence. Parsing never
// panics or propagates an error past this boundary.
func parseModelResponse(raw string) (modelResponse, bool) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return modelResponse{}, false
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return modelResponse{}, false
	}
	return resp, true
}

// extractJSONObject cuts the outermost JSON object out of model text that
// may carry prose or code fences around it.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
