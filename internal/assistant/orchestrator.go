package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aiox-platform/alchemist/internal/catalog"
	"github.com/aiox-platform/alchemist/internal/completion"
	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/filters"
	"github.com/aiox-platform/alchemist/internal/metrics"
	inats "github.com/aiox-platform/alchemist/internal/nats"
	"github.com/aiox-platform/alchemist/internal/parser"
	"github.com/aiox-platform/alchemist/internal/session"
)

const (
	defaultTurnTimeout    = 60 * time.Second
	defaultMaxSuggestions = 5
	publishTimeout        = 2 * time.Second
)

// Sessions resolves the session a turn runs in.
type Sessions interface {
	GetOrCreate(ctx context.Context, userID string) (*session.Session, error)
}

// FilterTranslator turns constraint text into engine filters.
type FilterTranslator interface {
	ToEngineFilters(ctx context.Context, constraint string) (filters.Set, error)
}

// Searcher queries the product catalog.
type Searcher interface {
	Search(ctx context.Context, query string, set filters.Set) ([]catalog.Record, error)
}

// EventPublisher announces completed turns.
type EventPublisher interface {
	PublishTurnEvent(ctx context.Context, event inats.TurnEvent) error
}

// Deps are the collaborators of an Orchestrator. Events is optional.
type Deps struct {
	Sessions   Sessions
	Completer  completion.Completer
	Translator FilterTranslator
	Catalog    Searcher
	Events     EventPublisher
}

// Options tune how turns are run.
type Options struct {
	// Temperature applies to the dialogue reply; extraction calls use 0.
	Temperature    float64
	MaxTokens      int
	TurnTimeout    time.Duration
	MaxSuggestions int
}

// Orchestrator drives conversation turns.
type Orchestrator struct {
	deps     Deps
	opts     Options
	validate *validator.Validate
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = defaultMaxSuggestions
	}
	return &Orchestrator{deps: deps, opts: opts, validate: validator.New()}
}

// HandleTurn runs one turn of the user's conversation. Steps run strictly in
// sequence under the turn timeout. Probes for the current query and filters
// are sent alongside the dialogue and never stored in it, so the dialogue
// grows by exactly the user input and the assistant reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	turnID := uuid.NewString()
	log := slog.With("turn_id", turnID, "user_id", userID)

	ctx, cancel := context.WithTimeoutCause(ctx, o.opts.TurnTimeout, ErrTurnTimeout)
	defer cancel()

	res, err := o.runTurn(ctx, log, turnID, userID, input)
	if err != nil {
		err = interrupted(ctx, err)
		metrics.TurnsTotal.WithLabelValues(outcome(err)).Inc()
		log.Warn("turn failed", "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.TurnsTotal.WithLabelValues("ok").Inc()
	metrics.TurnDuration.Observe(elapsed.Seconds())
	log.Info("turn completed",
		"query", res.Query,
		"filters", len(res.SuggestedFilters),
		"products", len(res.Products),
		"suggestions", len(res.SuggestedQueries),
		"duration_ms", elapsed.Milliseconds(),
	)

	o.publish(ctx, log, userID, res, elapsed)
	return res, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, log *slog.Logger, turnID, userID, input string) (*TurnResult, error) {
	sess, err := o.deps.Sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if err := sess.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for previous turn: %w", err)
	}
	defer sess.Release()

	userMsg := conversation.User(input)
	reply, err := o.complete(ctx, sess.Dialogue(userMsg), completion.PurposeDialogue, o.opts.Temperature)
	if err != nil {
		return nil, err
	}
	sess.AppendDialogue(userMsg, conversation.Assistant(reply))

	queryReply, err := o.complete(ctx, sess.Dialogue(conversation.User(QueryProbe)), completion.PurposeQueryProbe, 0)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(parser.QuotedFragment(queryReply))

	filterReply, err := o.complete(ctx, sess.Dialogue(conversation.User(FilterProbe)), completion.PurposeFilterProbe, 0)
	if err != nil {
		return nil, err
	}
	constraint := parser.ConstraintText(filterReply)

	set := filters.Set{}
	if constraint != "" {
		set, err = o.deps.Translator.ToEngineFilters(ctx, constraint)
		if err != nil {
			return nil, err
		}
	}

	records := []catalog.Record{}
	summary := ""
	if query != "" {
		records, err = o.deps.Catalog.Search(ctx, query, set)
		if err != nil {
			var catErr *catalog.CatalogError
			if ctx.Err() != nil || !errors.As(err, &catErr) {
				return nil, err
			}
			log.Warn("catalog search failed, continuing without products", "error", err, "query", query)
			records = []catalog.Record{}
		}
		if len(records) > 0 {
			summary, err = o.summarize(ctx, records)
			if err != nil {
				return nil, err
			}
		}
	} else {
		log.Debug("no query extracted, skipping retrieval", "reply", queryReply)
	}

	products, err := o.toProducts(records)
	if err != nil {
		return nil, err
	}

	exchange := []conversation.Message{userMsg, conversation.Assistant(reply)}
	asReply, err := o.complete(ctx, sess.AutoSuggest(exchange...), completion.PurposeAutoSuggest, 0)
	if err != nil {
		return nil, err
	}
	sess.AppendAutoSuggest(append(exchange, conversation.Assistant(asReply))...)

	suggestions, perr := parser.AutoSuggestions(asReply, o.opts.MaxSuggestions)
	if perr != nil {
		log.Debug("auto suggestions unparseable", "error", perr)
	}

	return &TurnResult{
		TurnID:              turnID,
		Query:               query,
		ProductSummary:      summary,
		Assistant:           reply,
		AutoSuggestResponse: asReply,
		SuggestedQueries:    suggestions,
		SuggestedFilters:    set,
		Products:            products,
		Personalization:     sess.Personalization,
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, msgs []conversation.Message, purpose completion.Purpose, temperature float64) (string, error) {
	return o.deps.Completer.Complete(ctx, msgs, completion.Options{
		Purpose:     purpose,
		Temperature: temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
}

// summarize builds a fresh summary context for this turn only.
func (o *Orchestrator) summarize(ctx context.Context, records []catalog.Record) (string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encoding products for summary: %w", err)
	}
	return o.complete(ctx, []conversation.Message{
		conversation.System(SummaryPrompt),
		conversation.User(string(payload)),
	}, completion.PurposeSummary, 0)
}

func (o *Orchestrator) toProducts(records []catalog.Record) ([]Product, error) {
	products := make([]Product, 0, len(records))
	for i, r := range records {
		p := Product{
			Title:     r.Title,
			ImageURL:  r.ImageURL,
			ListPrice: r.ListPrice,
			SalePrice: r.SalePrice,
		}
		if err := o.validate.Struct(p); err != nil {
			return nil, &ValidationError{Index: i, Title: r.Title, Err: err}
		}
		products = append(products, p)
	}
	return products, nil
}

func (o *Orchestrator) publish(ctx context.Context, log *slog.Logger, userID string, res *TurnResult, elapsed time.Duration) {
	if o.deps.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	fs := make(map[string]string, len(res.SuggestedFilters))
	for k, v := range res.SuggestedFilters {
		fs[string(k)] = v
	}
	event := inats.TurnEvent{
		TurnID:          res.TurnID,
		UserID:          userID,
		Query:           res.Query,
		Filters:         fs,
		ProductCount:    len(res.Products),
		SuggestionCount: len(res.SuggestedQueries),
		Personalization: string(res.Personalization),
		DurationMS:      elapsed.Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}
	if err := o.deps.Events.PublishTurnEvent(ctx, event); err != nil {
		log.Error("publishing turn event", "error", err)
	}
}

// interrupted reclassifies a failure caused by a deadline (the turn's own or
// one inherited from the caller) or by the caller going away.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if cause := context.Cause(ctx); errors.Is(cause, ErrTurnTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTurnTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTurnCanceled, err)
}

func outcome(err error) string {
	var valErr *ValidationError
	var gwErr *completion.GatewayError
	switch {
	case errors.Is(err, ErrTurnTimeout):
		return "timeout"
	case errors.Is(err, ErrTurnCanceled):
		return "canceled"
	case errors.As(err, &valErr):
		return "validation"
	case errors.As(err, &gwErr):
		return "gateway"
	}
	return "error"
}
