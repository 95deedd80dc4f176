package refine

import "testing"

func asked(texts ...string) []Question {
	qs := make([]Question, len(texts))
	for i, text := range texts {
		qs[i] = Question{ID: "q", Text: text}
	}
	return qs
}

func TestIsDuplicateQuestion_ExactText(t *testing.T) {
	prev := asked("What colour is it?")
	if !isDuplicateQuestion("  what colour is it?  ", prev) {
		t.Error("expected case and whitespace insensitive text match")
	}
}

func TestIsDuplicateQuestion_Condition(t *testing.T) {
	prev := asked("What condition is the console in?")
	if !isDuplicateQuestion("Is the item in boxed or unboxed condition?", prev) {
		t.Error("two condition questions should be duplicates however phrased")
	}
}

func TestIsDuplicateQuestion_ColourSpellings(t *testing.T) {
	prev := asked("What colour is it?")
	if !isDuplicateQuestion("Which color do you want?", prev) {
		t.Error("colour and color spellings should be treated as one topic")
	}
}

func TestIsDuplicateQuestion_SharedTopicKeyword(t *testing.T) {
	prev := asked("How much storage does it have?")
	if !isDuplicateQuestion("What storage capacity are you looking for?", prev) {
		t.Error("shared topic keyword should flag a duplicate")
	}
}

func TestIsDuplicateQuestion_DistinctTopics(t *testing.T) {
	prev := asked("What colour is it?")
	if isDuplicateQuestion("How much storage does it have?", prev) {
		t.Error("distinct topics should not be duplicates")
	}
}

func TestIsDuplicateQuestion_NothingAsked(t *testing.T) {
	if isDuplicateQuestion("What colour is it?", nil) {
		t.Error("nothing asked yet, nothing can be duplicated")
	}
}
