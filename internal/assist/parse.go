package assist

import (
	"encoding/json"
	"strings"

	"github.com/allendavis-developer/cg-request/internal/refine"
)

// questionPayload is the envelope the model is instructed to return. The
// question field is a RawMessage because it may be null, the string
// "needed", or a full question object depending on the mode.
type questionPayload struct {
	Question json.RawMessage `json:"question"`

	// Older responses sometimes come back as {"questions": [...]}.
	Questions []questionBody `json:"questions"`
}

type questionBody struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Options  []struct {
		Value string `json:"value"`
		Label string `json:"label"`
	} `json:"options"`
}

// parseEnvelope decodes a model response into its payload. Models wrap JSON
// in prose more often than not, so a failed direct parse falls back to the
// first brace-delimited substring. Anything unparseable after that is an
// explicit empty payload, never an error.
func parseEnvelope(raw string) questionPayload {
	raw = strings.TrimSpace(raw)

	var payload questionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
			return payload
		}
	}

	return questionPayload{}
}

// parseNecessity interprets a Phase A response. Only an explicit "needed"
// marker means another question should be generated.
func parseNecessity(raw string) bool {
	payload := parseEnvelope(raw)
	if len(payload.Question) == 0 {
		return false
	}
	var marker string
	if err := json.Unmarshal(payload.Question, &marker); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(marker), "needed")
}

// parseQuestion interprets a Phase B response. A nil return with nil error
// means the model declined to ask.
func parseQuestion(raw string) *refine.Question {
	payload := parseEnvelope(raw)

	var body *questionBody
	switch {
	case len(payload.Question) > 0 && string(payload.Question) != "null":
		var q questionBody
		if err := json.Unmarshal(payload.Question, &q); err != nil {
			return nil
		}
		body = &q
	case len(payload.Questions) > 0:
		body = &payload.Questions[0]
	default:
		return nil
	}

	if body == nil || strings.TrimSpace(body.Question) == "" {
		return nil
	}

	q := &refine.Question{
		ID:   body.ID,
		Text: strings.TrimSpace(body.Question),
	}
	for _, opt := range body.Options {
		if strings.TrimSpace(opt.Value) == "" {
			continue
		}
		q.Options = append(q.Options, refine.Option{
			Value: strings.TrimSpace(opt.Value),
			Label: strings.TrimSpace(opt.Label),
		})
	}
	if len(q.Options) < 2 {
		return nil
	}
	return q
}
