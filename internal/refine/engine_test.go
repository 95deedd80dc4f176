package refine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/allendavis-developer/cg-request/internal/extract"
)

// fakeGenerator scripts the two generator calls for engine tests.
type fakeGenerator struct {
	needed    bool
	neededErr error

	questions []*Question
	genErr    error

	checkCalls int
	genCalls   int
}

func (f *fakeGenerator) CheckClarificationNeeded(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (bool, error) {
	f.checkCalls++
	return f.needed, f.neededErr
}

func (f *fakeGenerator) GenerateClarificationQuestion(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (*Question, error) {
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	if len(f.questions) == 0 {
		return nil, nil
	}
	q := f.questions[0]
	f.questions = f.questions[1:]
	return q, nil
}

func conditionQuestion() *Question {
	return &Question{
		Text: "What condition is it in?",
		Options: []Option{
			{Value: "boxed", Label: "Boxed"},
			{Value: "unboxed", Label: "Unboxed"},
		},
	}
}

func priced(pairs ...string) []extract.ProductRecord {
	var records []extract.ProductRecord
	for i := 0; i+1 < len(pairs); i += 2 {
		records = append(records, extract.ProductRecord{Title: pairs[i], Price: pairs[i+1]})
	}
	return records
}

func TestBegin_NoCandidates(t *testing.T) {
	gen := &fakeGenerator{needed: true}
	state, q, err := NewEngine(gen).Begin(context.Background(), nil, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatal("expected no question for empty candidate set")
	}
	if !state.Complete || state.Outcome() != OutcomeNoMatch {
		t.Errorf("expected no_match, got %s", state.Outcome())
	}
	if gen.checkCalls != 0 {
		t.Error("generator should not be consulted for empty set")
	}
}

func TestBegin_SingleCandidate(t *testing.T) {
	gen := &fakeGenerator{needed: true}
	state, q, err := NewEngine(gen).Begin(context.Background(), priced("PS5 Boxed", "£305.00"), "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatal("expected no question for a single candidate")
	}
	if state.Outcome() != OutcomeResolved {
		t.Errorf("expected resolved, got %s", state.Outcome())
	}
	price, ok := state.ResolvedPrice()
	if !ok || price != "£305.00" {
		t.Errorf("unexpected resolved price: %q (%v)", price, ok)
	}
}

func TestBegin_UniformPrice(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£305.00")

	state, q, err := NewEngine(gen).Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatal("uniform price needs no question")
	}
	if gen.checkCalls != 0 || gen.genCalls != 0 {
		t.Error("generator should not be consulted when prices are uniform")
	}
	price, ok := state.ResolvedPrice()
	if !ok || price != "£305.00" {
		t.Errorf("unexpected resolved price: %q (%v)", price, ok)
	}
}

func TestBegin_QuestionSurfaced(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	state, q, err := NewEngine(gen).Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q == nil {
		t.Fatal("expected a question")
	}
	if q.ID != "question_1" {
		t.Errorf("expected engine-assigned id question_1, got %q", q.ID)
	}
	if state.Complete {
		t.Error("session should still be open")
	}
	if state.Outcome() != OutcomePending {
		t.Errorf("expected pending, got %s", state.Outcome())
	}
}

func TestAnswer_ResolvesToOne(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced(
		"Playstation 5 Console, Disc Edition, Boxed", "£305.00",
		"Playstation 5 Console, Disc Edition, Unboxed", "£285.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "ps5 disc")
	if err != nil {
		t.Fatal(err)
	}

	next, err := engine.Answer(context.Background(), state, q.ID, "unboxed")
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Fatalf("expected dialogue to finish, got %q", next.Text)
	}
	if state.Outcome() != OutcomeResolved {
		t.Fatalf("expected resolved, got %s", state.Outcome())
	}
	price, ok := state.ResolvedPrice()
	if !ok || price != "£285.00" {
		t.Errorf("unexpected price: %q (%v)", price, ok)
	}
	if got, err := state.Price(); err != nil || got != "£285.00" {
		t.Errorf("Price() = %q, %v", got, err)
	}
}

func TestAnswer_EliminatesAll(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced(
		"Playstation 5 Console, Disc Edition, Boxed", "£305.00",
		"Xbox Series X Console, Boxed", "£285.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "console")
	if err != nil {
		t.Fatal(err)
	}

	next, err := engine.Answer(context.Background(), state, q.ID, "unboxed")
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Fatal("no further question possible with zero candidates")
	}
	if state.Outcome() != OutcomeNoMatch {
		t.Errorf("expected no_match, got %s", state.Outcome())
	}
	if _, ok := state.ResolvedPrice(); ok {
		t.Error("no_match must never report a price")
	}
	if _, err := state.Price(); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestAnswer_ClearedAnswerWidensSet(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced(
		"Playstation 5 Console, Disc Edition, Boxed", "£305.00",
		"Xbox Series X Console, Boxed", "£285.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "console")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Answer(context.Background(), state, q.ID, "unboxed"); err != nil {
		t.Fatal(err)
	}
	if len(state.Candidates) != 0 {
		t.Fatalf("expected zero candidates, got %d", len(state.Candidates))
	}

	// Session is complete after elimination; clearing is rejected.
	if _, err := engine.Answer(context.Background(), state, q.ID, ""); err == nil {
		t.Fatal("expected error answering a complete session")
	}
}

func TestAnswer_ClearMidDialogue(t *testing.T) {
	storage := &Question{
		Text: "How much storage does it have?",
		Options: []Option{
			{Value: "825gb", Label: "825GB"},
			{Value: "1tb", Label: "1TB"},
		},
	}
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion(), storage}}
	candidates := priced(
		"PS5 825GB, Boxed", "£305.00",
		"PS5 825GB, Unboxed", "£285.00",
		"PS5 1TB, Unboxed", "£320.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}

	next, err := engine.Answer(context.Background(), state, q.ID, "unboxed")
	if err != nil {
		t.Fatal(err)
	}
	if next == nil {
		t.Fatal("expected a second question, prices still differ")
	}
	if len(state.Candidates) != 2 {
		t.Fatalf("expected 2 unboxed candidates, got %d", len(state.Candidates))
	}

	// Clearing the first answer recomputes from the full original set.
	next2, err := engine.Answer(context.Background(), state, q.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Candidates) != 3 {
		t.Fatalf("expected full set after clearing, got %d", len(state.Candidates))
	}
	_ = next2
}

func TestAnswer_UnknownQuestionID(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion()}}
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	engine := NewEngine(gen)
	state, _, err := engine.Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Answer(context.Background(), state, "question_99", "boxed"); err == nil {
		t.Fatal("expected error for unknown question id")
	}
}

func TestGeneratorFailure_CompletesSession(t *testing.T) {
	gen := &fakeGenerator{needed: true, genErr: errors.New("backend down")}
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	state, q, err := NewEngine(gen).Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatal("backend failure must not surface a question")
	}
	if state.Outcome() != OutcomeInconclusive {
		t.Errorf("expected inconclusive, got %s", state.Outcome())
	}
}

func TestNecessityCheckFailure_CompletesSession(t *testing.T) {
	edition := &Question{
		Text: "Which edition is it?",
		Options: []Option{
			{Value: "disc", Label: "Disc"},
			{Value: "digital", Label: "Digital"},
		},
	}
	gen := &fakeGenerator{needed: true, questions: []*Question{edition}}
	candidates := priced(
		"PS5 Disc Edition", "£300.00",
		"PS5 Digital Edition", "£280.00",
		"PS5 Disc Edition Refurbished", "£250.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}

	// The redundancy consult only happens once a question has been asked.
	gen.neededErr = errors.New("backend down")
	next, err := engine.Answer(context.Background(), state, q.ID, "disc")
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Fatal("necessity failure must not surface another question")
	}
	if state.Outcome() != OutcomeInconclusive {
		t.Errorf("expected inconclusive, got %s", state.Outcome())
	}
}

func TestRefinement_EndToEnd(t *testing.T) {
	edition := &Question{
		Text: "Which edition is it?",
		Options: []Option{
			{Value: "disc", Label: "Disc Edition"},
			{Value: "digital", Label: "Digital Edition"},
		},
	}
	condition := conditionQuestion()
	gen := &fakeGenerator{needed: true, questions: []*Question{edition, condition}}
	candidates := priced(
		"PS5 Disc Edition", "£300.00",
		"PS5 Digital Edition", "£280.00",
		"PS5 Disc Edition Refurbished Unboxed", "£250.00",
	)

	engine := NewEngine(gen)
	state, q, err := engine.Begin(context.Background(), candidates, "PS5 console")
	if err != nil {
		t.Fatal(err)
	}
	if q == nil || q.ID != "question_1" {
		t.Fatalf("expected first question, got %+v", q)
	}

	q, err = engine.Answer(context.Background(), state, q.ID, "disc")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Candidates) != 2 {
		t.Fatalf("expected 2 disc candidates, got %d", len(state.Candidates))
	}
	if q == nil || q.ID != "question_2" {
		t.Fatalf("prices still differ, expected a second question, got %+v", q)
	}

	q, err = engine.Answer(context.Background(), state, q.ID, "unboxed")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatalf("expected dialogue to finish, got %q", q.Text)
	}
	if state.Outcome() != OutcomeResolved {
		t.Fatalf("expected resolved, got %s", state.Outcome())
	}
	if price, _ := state.ResolvedPrice(); price != "£250.00" {
		t.Errorf("unexpected price: %q", price)
	}
}

// statelessGenerator serves concurrency tests; it holds no call state.
type statelessGenerator struct{}

func (statelessGenerator) CheckClarificationNeeded(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (bool, error) {
	return true, nil
}

func (statelessGenerator) GenerateClarificationQuestion(ctx context.Context, candidates []extract.ProductRecord, asked []Question, answers map[string]string, requestText string) (*Question, error) {
	return conditionQuestion(), nil
}

func TestEngine_SessionsAssignIndependentIDs(t *testing.T) {
	gen := &fakeGenerator{needed: true, questions: []*Question{conditionQuestion(), conditionQuestion()}}
	engine := NewEngine(gen)
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	_, q1, err := engine.Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	_, q2, err := engine.Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q1.ID != "question_1" || q2.ID != "question_1" {
		t.Errorf("each session numbers its own questions, got %q and %q", q1.ID, q2.ID)
	}
}

func TestEngine_ConcurrentSessions(t *testing.T) {
	engine := NewEngine(statelessGenerator{})
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, q, err := engine.Begin(context.Background(), candidates, "ps5")
			if err != nil || q == nil {
				t.Errorf("Begin failed: %v", err)
				return
			}
			ids[i] = q.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != "question_1" {
			t.Errorf("sessions must not share an ID counter, got %q", id)
		}
	}
}

func TestDuplicateQuestion_Discarded(t *testing.T) {
	colourAgain := &Question{
		Text: "Which color do you want?",
		Options: []Option{
			{Value: "white", Label: "White"},
			{Value: "black", Label: "Black"},
		},
	}
	gen := &fakeGenerator{questions: []*Question{colourAgain}}
	candidates := priced("Controller White", "£49.00", "Controller Black", "£45.00")

	engine := NewEngine(gen)
	state, _, err := engine.Begin(context.Background(), candidates, "controller")
	if err != nil {
		t.Fatal(err)
	}

	// Seed an already-asked colour question, then force another turn.
	gen.needed = true
	state.Asked = append(state.Asked, Question{ID: "question_0", Text: "What colour is it?"})
	state.Complete = false
	q, err := engine.nextQuestion(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatalf("duplicate question should be discarded, got %q", q.Text)
	}
	if !state.Complete {
		t.Error("discarding the only question completes the session")
	}
}

func TestMalformedQuestion_CompletesSession(t *testing.T) {
	oneOption := &Question{
		Text:    "What condition is it in?",
		Options: []Option{{Value: "boxed", Label: "Boxed"}},
	}
	gen := &fakeGenerator{needed: true, questions: []*Question{oneOption}}
	candidates := priced("PS5 Boxed", "£305.00", "PS5 Unboxed", "£285.00")

	state, q, err := NewEngine(gen).Begin(context.Background(), candidates, "ps5")
	if err != nil {
		t.Fatal(err)
	}
	if q != nil {
		t.Fatal("a question with fewer than two options must not surface")
	}
	if !state.Complete {
		t.Error("expected session to complete")
	}
}
