package refine

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/allendavis-developer/cg-request/internal/extract"
	"github.com/allendavis-developer/cg-request/internal/logger"
)

var validate = validator.New()

// ErrNoMatch means the answers eliminated every candidate.
var ErrNoMatch = errors.New("no candidate matches the given answers")

// Outcome classifies a completed refinement session.
type Outcome string

const (
	// OutcomePending means the session is still awaiting answers.
	OutcomePending Outcome = "pending"

	// OutcomeResolved means the candidates determine a single price.
	OutcomeResolved Outcome = "resolved"

	// OutcomeNoMatch means answers filtered every candidate out. This is
	// distinct from resolved and must never be reported as a price.
	OutcomeNoMatch Outcome = "no_match"

	// OutcomeInconclusive means no further question was worth asking but the
	// remaining candidates still carry different prices.
	OutcomeInconclusive Outcome = "inconclusive"
)

// State is one in-progress disambiguation session. It is exclusively owned
// by its session's sequential flow; no locking is needed.
type State struct {
	// Original is the full extraction result the session started from.
	Original []extract.ProductRecord

	// Candidates is the current filtered set.
	Candidates []extract.ProductRecord

	// Asked is the append-only sequence of surfaced questions.
	Asked []Question

	// Answers maps question ID to the selected option value. A cleared
	// answer removes the key; an empty value is never stored.
	Answers map[string]string

	// RequestText is the user's original request, carried through so the
	// generator avoids asking about attributes already specified.
	RequestText string

	// Complete is set once the engine determines no further question is
	// needed.
	Complete bool

	// nextID backs the session-scoped question ID sequence. It lives on
	// the state, not the engine, so concurrent sessions share no counter.
	nextID int
}

// Outcome classifies the state. Pending until Complete is set.
func (s *State) Outcome() Outcome {
	if !s.Complete {
		return OutcomePending
	}
	if len(s.Candidates) == 0 {
		return OutcomeNoMatch
	}
	if price, ok := uniformPrice(s.Candidates); ok && price != "" {
		return OutcomeResolved
	}
	if len(s.Candidates) == 1 {
		return OutcomeResolved
	}
	return OutcomeInconclusive
}

// ResolvedPrice returns the determined price for a resolved session.
func (s *State) ResolvedPrice() (string, bool) {
	if s.Outcome() != OutcomeResolved {
		return "", false
	}
	if price, ok := uniformPrice(s.Candidates); ok && price != "" {
		return price, true
	}
	return s.Candidates[0].Price, s.Candidates[0].Price != ""
}

// Price returns the determined price once the session is complete. It
// returns ErrNoMatch when every candidate was eliminated.
func (s *State) Price() (string, error) {
	switch s.Outcome() {
	case OutcomeResolved:
		if price, ok := s.ResolvedPrice(); ok {
			return price, nil
		}
		return "", errors.New("matching listing carries no price")
	case OutcomeNoMatch:
		return "", ErrNoMatch
	case OutcomePending:
		return "", errors.New("session still in progress")
	default:
		return "", fmt.Errorf("%d candidates remain with different prices", len(s.Candidates))
	}
}

// Engine runs the two-phase clarification protocol over a State.
type Engine struct {
	gen Generator
}

// NewEngine creates an engine backed by the given question generator.
func NewEngine(gen Generator) *Engine {
	return &Engine{gen: gen}
}

// Begin starts a session from an extraction result. It returns the first
// question, or nil with state.Complete set when no clarification is needed
// (zero or one candidate, or uniform price, from the start).
func (e *Engine) Begin(ctx context.Context, products []extract.ProductRecord, requestText string) (*State, *Question, error) {
	state := &State{
		Original:    products,
		Candidates:  products,
		Answers:     make(map[string]string),
		RequestText: requestText,
	}
	q, err := e.nextQuestion(ctx, state)
	return state, q, err
}

// Answer applies the user's answer for a question and advances the session.
// An empty value clears a previous answer. It returns the next question, or
// nil once the session is complete.
func (e *Engine) Answer(ctx context.Context, state *State, questionID, value string) (*Question, error) {
	if state.Complete {
		return nil, fmt.Errorf("session already complete")
	}
	if !e.hasQuestion(state, questionID) {
		return nil, fmt.Errorf("unknown question id: %s", questionID)
	}

	if value == "" {
		// an empty answer means "unanswered", not an answer of ""
		delete(state.Answers, questionID)
	} else {
		state.Answers[questionID] = value
	}

	// Filters are not individually reversible once merged: recompute the
	// candidate set from the full original set with the answers now held.
	state.Candidates = applyAnswers(state.Original, state.Asked, state.Answers)
	logger.Debug("refine: answer applied",
		"question_id", questionID,
		"value", value,
		"candidates", len(state.Candidates))

	return e.nextQuestion(ctx, state)
}

// nextQuestion runs one Phase A / Phase B turn. On "no question" it marks
// the state complete.
func (e *Engine) nextQuestion(ctx context.Context, state *State) (*Question, error) {
	if !e.questionNeeded(ctx, state) {
		state.Complete = true
		logger.Debug("refine: complete", "outcome", state.Outcome(), "candidates", len(state.Candidates))
		return nil, nil
	}

	q, err := e.gen.GenerateClarificationQuestion(ctx, state.Candidates, state.Asked, state.Answers, state.RequestText)
	if err != nil {
		// A turn that cannot produce a valid question is "no question
		// needed"; the session must never block on a misbehaving backend.
		logger.Warn("refine: question generation failed, completing", "error", err)
		state.Complete = true
		return nil, nil
	}
	if q == nil {
		state.Complete = true
		return nil, nil
	}
	if err := validate.Struct(q); err != nil {
		logger.Warn("refine: generated question malformed, completing", "error", err)
		state.Complete = true
		return nil, nil
	}

	if isDuplicateQuestion(q.Text, state.Asked) {
		logger.Debug("refine: duplicate question discarded", "question", q.Text)
		state.Complete = true
		return nil, nil
	}

	// The surfaced ID is always engine-assigned, whatever the backend put
	// in its payload.
	state.nextID++
	q.ID = fmt.Sprintf("question_%d", state.nextID)
	state.Asked = append(state.Asked, *q)
	return q, nil
}

// questionNeeded is Phase A. Candidate count and price uniformity decide
// locally; the generator is only consulted on later turns, where it can
// judge whether another question would be redundant given the answers held.
func (e *Engine) questionNeeded(ctx context.Context, state *State) bool {
	if len(state.Candidates) <= 1 {
		return false
	}
	if _, ok := uniformPrice(state.Candidates); ok {
		return false
	}
	if len(state.Asked) == 0 {
		return true
	}

	needed, err := e.gen.CheckClarificationNeeded(ctx, state.Candidates, state.Asked, state.Answers, state.RequestText)
	if err != nil {
		logger.Warn("refine: necessity check failed, treating as not needed", "error", err)
		return false
	}
	return needed
}

func (e *Engine) hasQuestion(state *State, id string) bool {
	for _, q := range state.Asked {
		if q.ID == id {
			return true
		}
	}
	return false
}

// uniformPrice reports whether every candidate that carries a price carries
// the same one. Candidates with no extracted price are ignored.
func uniformPrice(candidates []extract.ProductRecord) (string, bool) {
	price := ""
	for _, rec := range candidates {
		if rec.Price == "" {
			continue
		}
		if price == "" {
			price = rec.Price
			continue
		}
		if rec.Price != price {
			return "", false
		}
	}
	if price == "" {
		return "", false
	}
	return price, true
}
