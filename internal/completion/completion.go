package completion

import (
	"context"
	"fmt"

	"github.com/aiox-platform/alchemist/internal/conversation"
)

// Purpose labels a completion call for logs and metrics.
type Purpose string

const (
	PurposeDialogue        Purpose = "dialogue"
	PurposeQueryProbe      Purpose = "query_probe"
	PurposeFilterProbe     Purpose = "filter_probe"
	PurposeFilterTranslate Purpose = "filter_translate"
	PurposeSummary         Purpose = "summary"
	PurposeAutoSuggest     Purpose = "autosuggest"
)

// Schema requests JSON-schema constrained output from the model.
type Schema struct {
	Name   string
	Object map[string]any
}

// Options control a single completion call.
type Options struct {
	Purpose     Purpose
	Temperature float64
	MaxTokens   int
	Schema      *Schema
}

// Completer turns an ordered message sequence into a single text reply.
type Completer interface {
	Complete(ctx context.Context, msgs []conversation.Message, opts Options) (string, error)
}

// GatewayError is an upstream completion failure. It is always retryable
// from the caller's point of view; nothing in this package retries.
type GatewayError struct {
	Purpose    Purpose
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion %s failed with status %d: %v", e.Purpose, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion %s failed: %v", e.Purpose, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
