// Package refine implements the clarification engine: the state machine that
// narrows an extracted product set to a single price by asking the user
// disambiguating questions and filtering candidates by their answers.
package refine

import (
	"context"

	"github.com/allendavis-developer/cg-request/internal/extract"
)

// Option is one selectable answer for a clarification question.
type Option struct {
	// Value is the machine form, lowercase-hyphenated (e.g. "midnight-black").
	Value string `json:"value" validate:"required"`

	// Label is the human-readable form (e.g. "Midnight Black").
	Label string `json:"label" validate:"required"`
}

// Question is one disambiguating multiple-choice prompt. Immutable once
// surfaced; answers reference it by ID.
type Question struct {
	// ID is assigned by the engine at the moment of surfacing, never by the
	// generation backend.
	ID      string   `json:"id"`
	Text    string   `json:"question" validate:"required"`
	Options []Option `json:"options" validate:"required,min=2,max=6,dive"`
}

// OptionLabel resolves an option value to its label. Falls back to the value
// itself when the option is unknown.
func (q *Question) OptionLabel(value string) string {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Generator is the text-generation collaborator behind the engine's two-phase
// turn protocol. Both calls are best-effort: an error or a nil question is
// treated as "no question needed", never as a fatal condition.
type Generator interface {
	// CheckClarificationNeeded is the Phase A backend: given the current
	// candidates and full Q&A history, decide whether another question is
	// worth generating.
	CheckClarificationNeeded(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (bool, error)

	// GenerateClarificationQuestion is the Phase B backend: produce one
	// question from observable differences across candidate titles. May
	// return nil even when Phase A said a question was needed.
	GenerateClarificationQuestion(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (*Question, error)
}
