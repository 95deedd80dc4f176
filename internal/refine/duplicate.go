package refine

import "strings"

// topicKeywords is the fixed vocabulary used to decide whether two questions
// cover the same distinguishing feature. Deliberately small: the check is a
// heuristic, and growing the list changes which questions get suppressed.
var topicKeywords = []string{
	"condition",
	"colour",
	"color",
	"storage",
	"capacity",
	"model",
	"edition",
	"generation",
	"size",
	"grade",
	"console",
	"phone",
	"tablet",
	"laptop",
}

// isDuplicateQuestion reports whether a newly generated question covers the
// same ground as one already asked. Surfacing a near-duplicate is a defect,
// so any match discards the new question.
func isDuplicateQuestion(candidate string, asked []Question) bool {
	for _, prev := range asked {
		if questionsOverlap(candidate, prev.Text) {
			return true
		}
	}
	return false
}

func questionsOverlap(a, b string) bool {
	al := strings.ToLower(a)
	bl := strings.ToLower(b)

	// exact text match
	if strings.TrimSpace(al) == strings.TrimSpace(bl) {
		return true
	}

	// both ask about condition, however phrased
	if strings.Contains(al, "condition") && strings.Contains(bl, "condition") {
		return true
	}

	// both ask about colour, tolerating either spelling
	if mentionsColour(al) && mentionsColour(bl) {
		return true
	}

	// shared topic keyword
	for _, kw := range topicKeywords {
		if strings.Contains(al, kw) && strings.Contains(bl, kw) {
			return true
		}
	}

	return false
}

func mentionsColour(lower string) bool {
	return strings.Contains(lower, "colour") || strings.Contains(lower, "color")
}
