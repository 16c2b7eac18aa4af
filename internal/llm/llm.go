package llm

import "context"

type Request struct {
	System string
	User   string
}

type Response struct {
	Text  string
	Model string
}

// Completer is the single capability the pipeline needs from a language
// model provider. Both SQL generation and answer formatting go through it.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
