package filters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aiox-platform/alchemist/internal/completion"
	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/parser"
)

// Translator maps natural-language constraints onto the engine vocabulary.
type Translator struct {
	completer completion.Completer
	maxTokens int
	schema    *completion.Schema
}

// TranslatorOptions configure a Translator.
type TranslatorOptions struct {
	MaxTokens int
	// Structured asks the model for JSON-schema constrained output.
	Structured bool
}

// NewTranslator creates a Translator backed by the given completer.
func NewTranslator(c completion.Completer, opts TranslatorOptions) *Translator {
	t := &Translator{completer: c, maxTokens: opts.MaxTokens}
	if opts.Structured {
		t.schema = &completion.Schema{Name: "engine_filters", Object: Schema()}
	}
	return t
}

// ToEngineFilters translates constraint text into an engine filter set.
// Unparseable model output yields an empty set and no error, so the search
// runs unfiltered. Completion failures are returned as-is.
func (t *Translator) ToEngineFilters(ctx context.Context, constraint string) (Set, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return Set{}, nil
	}

	reply, err := t.completer.Complete(ctx,
		[]conversation.Message{conversation.User(translationPrompt(constraint))},
		completion.Options{
			Purpose:     completion.PurposeFilterTranslate,
			Temperature: 0,
			MaxTokens:   t.maxTokens,
			Schema:      t.schema,
		},
	)
	if err != nil {
		return Set{}, fmt.Errorf("translating filters: %w", err)
	}

	obj, err := parser.JSONObject(reply)
	if err != nil {
		slog.Warn("filter translation unparseable, searching unfiltered", "error", err)
		return Set{}, nil
	}
	return Decode(obj), nil
}

func translationPrompt(constraint string) string {
	names := make([]string, len(Vocabulary))
	for i, n := range Vocabulary {
		names[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf(`Given the list of filters delimited by triple backticks.
Filters: `+"```[%s]```"+`
and the given constraints: `+"```%s```"+`
Identify which of the filters correspond to the constraints and the value each one takes.
Return a single JSON object and nothing else. Its keys must be filter names from the list;
its values are the matching values as strings, or lists of strings when several values apply.
Do not invent filter names that are not in the list.
For price constraints such as under, over or between use the key %q with an inclusive
range value written as [min TO max], using * for an open bound, e.g. "[* TO 50]".`,
		strings.Join(names, ", "), constraint, PriceRange)
}
