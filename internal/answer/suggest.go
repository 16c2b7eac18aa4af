package answer

import (
	"hash/fnv"
	"strings"
)

var exampleQuestions = []string{
	"Show all orders for John Doe",
	"List cancelled orders from this month",
	"Which products are low on stock?",
	"Show the five most recent product reviews",
	"How many orders has each customer placed?",
	"What is our total revenue this month?",
	"List open support tickets with customer names",
	"Who are our top five customers by total spending?",
	"Show products that have never been ordered",
	"What is the average rating for each product?",
}

// ExampleQuestions returns the curated follow-up catalog.
func ExampleQuestions() []string {
	out := make([]string, len(exampleQuestions))
	copy(out, exampleQuestions)
	return out
}

// Suggest picks up to n follow-up questions, rotated deterministically by the
// asked question so repeat calls agree and different questions vary.
func Suggest(question string, n int) []string {
	if n <= 0 || len(exampleQuestions) == 0 {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(question))
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalized))
	start := int(h.Sum32()) % len(exampleQuestions)
	if start < 0 {
		start += len(exampleQuestions)
	}

	suggestions := make([]string, 0, n)
	for i := 0; i < len(exampleQuestions) && len(suggestions) < n; i++ {
		candidate := exampleQuestions[(start+i)%len(exampleQuestions)]
		if strings.EqualFold(strings.TrimSpace(candidate), normalized) {
			continue
		}
		suggestions = append(suggestions, candidate)
	}
	return suggestions
}
