// This file contains the OpenAI-compatible implementation of intent parsing,
// used for Groq and Cerebras through their OpenAI-compatible endpoints.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiIntentParser parses intents through the chat completions API with
// tool choice "required".
type openaiIntentParser struct {
	client     openai.Client
	model      string
	tools      []openai.ChatCompletionToolUnionParam
	systemInst string
	provider   Provider
}

// newOpenAIIntentParser returns nil when apiKey is empty. baseURL overrides
// the provider endpoint (tests point it at httptest servers).
func newOpenAIIntentParser(_ context.Context, provider Provider, apiKey, model, baseURL string) (*openaiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}

	if baseURL == "" {
		baseURL = provider.openAIBaseURL()
		if baseURL == "" {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}
	if model == "" {
		model = provider.DefaultModels()[0]
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		// Retries are handled by FallbackParser.
		option.WithMaxRetries(0),
	)

	return &openaiIntentParser{
		client:     client,
		model:      model,
		tools:      buildOpenAITools(),
		systemInst: IntentParserSystemPrompt,
		provider:   provider,
	}, nil
}

// buildOpenAITools converts the function declarations to OpenAI tools.
// JSON Schema types must be lowercase ("string", not "STRING").
func buildOpenAITools() []openai.ChatCompletionToolUnionParam {
	funcDecls := BuildIntentFunctions()
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(funcDecls))

	for _, fd := range funcDecls {
		properties := make(map[string]any, len(fd.Parameters.Properties))
		for name, schema := range fd.Parameters.Properties {
			properties[name] = map[string]string{
				"type":        strings.ToLower(string(schema.Type)),
				"description": schema.Description,
			}
		}
		required := fd.Parameters.Required
		if required == nil {
			required = []string{}
		}

		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		}))
	}
	return result
}

// Parse sends text with tool choice "required".
func (p *openaiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("intent parser is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.systemInst),
			openai.UserMessage(text),
		},
		Tools: p.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", p.provider,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		status := 0
		var headers http.Header
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
			if apiErr.Response != nil {
				headers = apiErr.Response.Header
			}
		}
		return nil, wrapWithHeaders(fmt.Errorf("chat completion failed: %w", err), p.provider, status, headers)
	}

	parsed, err := parseOpenAIResponse(resp)
	if err != nil {
		return nil, err
	}
	parsed.Model = p.model

	slog.DebugContext(ctx, "intent parsing completed",
		"provider", p.provider,
		"model", p.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds(),
		"function_name", parsed.FunctionName)
	return parsed, nil
}

// parseOpenAIResponse takes the first tool call of the first choice.
func parseOpenAIResponse(resp *openai.ChatCompletion) (*ParseResult, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, ErrInvalidResponse
	}
	tc := calls[0]
	if tc.Type != "function" {
		return nil, fmt.Errorf("%w: unexpected tool type %q", ErrInvalidResponse, tc.Type)
	}

	var args map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("%w: arguments for %q: %v", ErrInvalidResponse, tc.Function.Name, err)
		}
	}
	return newParseResult(tc.Function.Name, args)
}

func (p *openaiIntentParser) IsEnabled() bool {
	return p != nil
}

func (p *openaiIntentParser) Provider() Provider {
	if p == nil {
		return ""
	}
	return p.provider
}

// Close is a no-op; the openai-go client holds no resources.
func (p *openaiIntentParser) Close() error {
	return nil
}
