package refine

import (
	"strings"

	"github.com/allendavis-developer/cg-request/internal/extract"
)

// conditionKeywords maps a normalized answer label for condition questions to
// the title keywords that imply it. Labels with no entry fall back to
// matching the normalized label itself.
var conditionKeywords = map[string][]string{
	"boxed":       {"boxed", "box"},
	"unboxed":     {"unboxed", "no box"},
	"discounted":  {"discounted"},
	"refurbished": {"refurbished", "refurb"},
	"used":        {"used"},
	"new":         {"new"},
}

// normalizeLabel lowercases a label and strips everything that is not a
// letter, digit or space, collapsing runs of whitespace.
func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// filterByAnswer keeps the candidates whose titles satisfy one answered
// question. Condition questions match per-title keywords. Other questions
// give whole-label containment precedence: when any title carries the full
// label, titles sharing only a stray word of it ("edition") do not survive.
// Word-level matching is the fallback for sets where no title does.
func filterByAnswer(candidates []extract.ProductRecord, q Question, value string) []extract.ProductRecord {
	label := strings.ToLower(q.OptionLabel(value))
	norm := normalizeLabel(label)

	if strings.Contains(strings.ToLower(q.Text), "condition") {
		keywords, ok := conditionKeywords[norm]
		if !ok {
			keywords = []string{norm}
		}
		return keepTitles(candidates, func(title string) bool {
			for _, kw := range keywords {
				if kw != "" && strings.Contains(title, kw) {
					return true
				}
			}
			return false
		})
	}

	whole := keepTitles(candidates, func(title string) bool {
		return strings.Contains(title, label)
	})
	if len(whole) > 0 {
		return whole
	}
	return keepTitles(candidates, func(title string) bool {
		for _, word := range strings.Fields(norm) {
			if len(word) > 2 && strings.Contains(title, word) {
				return true
			}
		}
		return false
	})
}

func keepTitles(candidates []extract.ProductRecord, match func(string) bool) []extract.ProductRecord {
	var kept []extract.ProductRecord
	for _, rec := range candidates {
		if match(strings.ToLower(rec.Title)) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// applyAnswers re-derives the candidate set from the full extraction result,
// applying every currently held answer in asked order. Individual filters are
// not reversible once merged, so a cleared answer means recomputing from
// scratch with the remaining ones.
func applyAnswers(original []extract.ProductRecord, asked []Question, answers map[string]string) []extract.ProductRecord {
	candidates := original
	for _, q := range asked {
		value, ok := answers[q.ID]
		if !ok || value == "" {
			continue
		}
		candidates = filterByAnswer(candidates, q, value)
	}
	return candidates
}
