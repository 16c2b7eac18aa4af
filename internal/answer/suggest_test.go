package answer

import (
	"testing"
)

func TestSuggestIsDeterministic(t *testing.T) {
	first := Suggest("show orders", 3)
	second := Suggest("show orders", 3)
	if len(first) != 3 {
		t.Fatalf("suggestion count = %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("suggestions differ: %v vs %v", first, second)
		}
	}
}

func TestSuggestSkipsTheAskedQuestion(t *testing.T) {
	for _, got := range Suggest("  show ALL orders for john doe ", 10) {
		if got == "Show all orders for John Doe" {
			t.Fatalf("suggestions include the asked question: %v", got)
		}
	}
}

func TestSuggestZeroCount(t *testing.T) {
	if got := Suggest("q", 0); got != nil {
		t.Fatalf("Suggest(0) = %v", got)
	}
}

func TestExampleQuestionsReturnsCopy(t *testing.T) {
	questions := ExampleQuestions()
	if len(questions) == 0 {
		t.Fatal("catalog is empty")
	}
	questions[0] = "mutated"
	if ExampleQuestions()[0] == "mutated" {
		t.Fatal("catalog aliasing")
	}
}
