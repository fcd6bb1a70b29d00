package completion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/aiox-platform/alchemist/internal/config"
	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/metrics"
)

// OpenAIGateway implements Completer against an OpenAI-compatible chat API.
type OpenAIGateway struct {
	client openai.Client
	model  string
}

// NewOpenAIGateway creates a gateway. SDK retries are disabled; retry policy
// belongs to the caller.
func NewOpenAIGateway(cfg config.OpenAIConfig, extra ...option.RequestOption) *OpenAIGateway {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)

	return &OpenAIGateway{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Complete implements Completer.
func (g *OpenAIGateway) Complete(ctx context.Context, msgs []conversation.Message, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.model),
		Messages:    convertMessages(msgs),
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   opts.Schema.Name,
					Schema: opts.Schema.Object,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.CompletionsTotal.WithLabelValues(string(opts.Purpose), "error").Inc()
		gwErr := &GatewayError{Purpose: opts.Purpose, Err: err}
		if ctxErr := ctx.Err(); ctxErr != nil {
			gwErr.Err = errors.Join(ctxErr, err)
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			gwErr.StatusCode = apiErr.StatusCode
		}
		return "", gwErr
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionsTotal.WithLabelValues(string(opts.Purpose), "empty").Inc()
		return "", &GatewayError{Purpose: opts.Purpose, Err: errors.New("no choices in completion response")}
	}

	metrics.CompletionsTotal.WithLabelValues(string(opts.Purpose), "ok").Inc()
	slog.Debug("completion finished",
		"purpose", opts.Purpose,
		"messages", len(msgs),
		"duration", time.Since(start),
		"total_tokens", resp.Usage.TotalTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func convertMessages(msgs []conversation.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case conversation.RoleSystem:
			out[i] = openai.SystemMessage(m.Content)
		case conversation.RoleAssistant:
			out[i] = openai.AssistantMessage(m.Content)
		default:
			out[i] = openai.UserMessage(m.Content)
		}
	}
	return out
}
