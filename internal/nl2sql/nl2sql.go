package nl2sql

import (
	"context"
	"fmt"

	"github.com/shoptalk/shoptalk/internal/schema"
)

type Request struct {
	Question string
	Schema   schema.Context
	// Feedback carries the failure of a previous attempt so the model can
	// correct itself on retry.
	Feedback string
}

type Result struct {
	SQL   string
	Model string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("sql generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
