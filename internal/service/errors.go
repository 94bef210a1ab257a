package service

import (
	"errors"
	"fmt"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

// Configuration errors fail the request before any retrieval work begins.
var (
	ErrNoCollections     = errors.New("no collections available to search")
	ErrInvalidMaxResults = errors.New("max_results must be positive")
)

// EmbedError wraps a failure to embed the question. Nothing can be
// retrieved without a query vector, so this aborts the request.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed question: %v", e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// GenerationError reports an upstream LLM failure after retrieval
// succeeded. It carries the references that would have been cited so the
// caller can still show "we found these sources but could not generate an
// answer" instead of losing all retrieval work.
type GenerationError struct {
	Err                 error
	References          []model.Reference
	CollectionsSearched []string
	Diagnostics         *model.Diagnostics
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate answer: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
