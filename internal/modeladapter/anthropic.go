package modeladapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/serialx/vibecore/internal/backoff"
	"github.com/serialx/vibecore/internal/core"
)

// AnthropicAdapter is the sole ModelAdapter backend (this spec is
// Anthropic-only; see DESIGN.md). It wraps anthropic.Client the way
// AnthropicProvider wraps it in internal/agent/providers/anthropic.go,
// generalized to the engine's Item/Event vocabulary and extended with
// prompt-cache annotation and OAuth-aware transport.
type AnthropicAdapter struct {
	client anthropic.Client

	retryPolicy backoff.BackoffPolicy
	maxAttempts int
}

// NewAnthropicAdapter builds an adapter whose outbound HTTP client is
// transport, typically oauth.NewRequestInterceptor wrapping
// http.DefaultTransport so every request carries fresh credentials.
func NewAnthropicAdapter(transport http.RoundTripper, baseURL string) *AnthropicAdapter {
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Transport: transport, Timeout: 120 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicAdapter{
		client:      anthropic.NewClient(opts...),
		retryPolicy: backoff.BackoffPolicy{InitialMs: 1000, MaxMs: 8000, Factor: 2},
		maxAttempts: 3,
	}
}

// connection is a stream paired with its already-consumed first event, so
// the retry loop below can validate a connection succeeded (by pulling one
// event) without losing that event to the caller.
type connection struct {
	stream   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	hasFirst bool
}

// Send implements ModelAdapter. Connection failures (network errors, 5xx)
// are retried with backoff.RetryWithBackoff, mirroring the teacher's own
// retry loop in AnthropicProvider.Complete but bounded to the initial
// connect rather than the whole stream (a stream that fails mid-flight
// surfaces its error as a terminal Error event instead, per §4.7).
func (a *AnthropicAdapter) Send(ctx context.Context, req Request) (<-chan core.Event, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return nil, core.WrapError(core.KindInvalidInput, err, "building anthropic request")
	}

	result, err := backoff.RetryWithBackoff(ctx, a.retryPolicy, a.maxAttempts, func(attempt int) (connection, error) {
		stream := a.client.Messages.NewStreaming(ctx, params)
		if stream.Next() {
			return connection{stream: stream, hasFirst: true}, nil
		}
		if err := stream.Err(); err != nil && isRetryableStreamError(err) {
			return connection{}, err
		}
		return connection{stream: stream, hasFirst: false}, nil
	})
	if err != nil {
		return nil, core.WrapError(core.KindModelTransient, err, "connecting to anthropic after %d attempts", result.Attempts)
	}
	stream := result.Value.stream

	events := make(chan core.Event, 16)
	go func() {
		defer close(events)
		dec := NewStreamDecoder()

		emit := func(raw anthropic.MessageStreamEventUnion) bool {
			for _, ev := range dec.Decode(raw) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		if result.Value.hasFirst {
			if !emit(stream.Current()) {
				return
			}
		}
		for stream.Next() {
			if !emit(stream.Current()) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			events <- core.ErrorEvent(core.KindModelTransient, err.Error())
		}
	}()

	return events, nil
}

// isRetryableStreamError classifies connection failures the way
// AnthropicProvider.isRetryableError does: rate limits, 5xx, timeouts, and
// network errors are retried; everything else (bad request, auth) is not.
func isRetryableStreamError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"rate_limit", "429", "too many requests",
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (a *AnthropicAdapter) buildParams(req Request) (anthropic.MessageNewParams, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	if req.SystemPrompt != "" {
		cacheable := AnnotateSystemCache(req.SystemPrompt, countMessageCacheMarks(req.Messages, messages))
		block := anthropic.TextBlockParam{Text: req.SystemPrompt}
		if cacheable {
			block.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		params.System = []anthropic.TextBlockParam{block}
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}

	if req.EnableThinking {
		budget := req.ThinkingBudgetTokens
		if budget < 1024 {
			budget = 10000
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	return params, nil
}

// countMessageCacheMarks re-derives how many of the four Messages-array
// breakpoints AnnotateCache already spent, so the system prompt only takes
// rule 4's slot when one remains.
func countMessageCacheMarks(original []Message, _ []anthropic.MessageParam) int {
	return CountCached(AnnotateCache(original))
}

func convertMessages(messages []Message) ([]anthropic.MessageParam, error) {
	annotated := AnnotateCache(messages)

	var out []anthropic.MessageParam
	for _, m := range annotated {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			block, err := convertBlock(b)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}

		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

func convertBlock(b ContentBlock) (anthropic.ContentBlockParamUnion, error) {
	switch {
	case b.ToolUseID != "":
		var input map[string]any
		if b.ToolInput != "" {
			if err := json.Unmarshal([]byte(b.ToolInput), &input); err != nil {
				return anthropic.ContentBlockParamUnion{}, fmt.Errorf("invalid tool_use input: %w", err)
			}
		}
		block := anthropic.NewToolUseBlock(b.ToolUseID, input, b.ToolName)
		if b.Cached && block.OfToolUse != nil {
			block.OfToolUse.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		return block, nil

	case b.ToolResultID != "":
		block := anthropic.NewToolResultBlock(b.ToolResultID, b.ToolResultContent, b.ToolResultIsError)
		if b.Cached && block.OfToolResult != nil {
			block.OfToolResult.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		return block, nil

	default:
		block := anthropic.NewTextBlock(b.Text)
		if b.Cached && block.OfText != nil {
			block.OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		return block, nil
	}
}

func convertTools(tools []core.ToolDescriptor) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", t.Name)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		out = append(out, param)
	}
	return out, nil
}
