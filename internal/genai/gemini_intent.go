// This file contains the Gemini implementation of intent parsing.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// geminiIntentParser parses intents with Gemini function calling.
type geminiIntentParser struct {
	client     *genai.Client
	model      string
	tools      []*genai.Tool
	systemInst string
}

// newGeminiIntentParser returns nil when apiKey is empty.
func newGeminiIntentParser(ctx context.Context, apiKey, model string) (*geminiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}
	if model == "" {
		model = ProviderGemini.DefaultModels()[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiIntentParser{
		client: client,
		model:  model,
		tools: []*genai.Tool{{
			FunctionDeclarations: BuildIntentFunctions(),
		}},
		systemInst: IntentParserSystemPrompt,
	}, nil
}

// Parse asks the model to call exactly one intent function (mode ANY).
func (p *geminiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("intent parser is nil")
	}

	config := &genai.GenerateContentConfig{
		Tools:             p.tools,
		SystemInstruction: genai.NewContentFromText(p.systemInst, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", ProviderGemini,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, geminiStatus(err))
	}

	parsed, err := parseGeminiResponse(result)
	if err != nil {
		return nil, err
	}
	parsed.Model = p.model

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "intent parsing completed",
			"provider", ProviderGemini,
			"model", p.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds(),
			"function_name", parsed.FunctionName)
	}
	return parsed, nil
}

// geminiStatus extracts the HTTP status from a Gemini API error, or 0.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// parseGeminiResponse takes the first function call of the first candidate.
func parseGeminiResponse(result *genai.GenerateContentResponse) (*ParseResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content", ErrInvalidResponse)
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.FunctionCall != nil {
			return newParseResult(part.FunctionCall.Name, part.FunctionCall.Args)
		}
	}
	return nil, ErrInvalidResponse
}

func (p *geminiIntentParser) IsEnabled() bool {
	return p != nil && p.client != nil
}

func (p *geminiIntentParser) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; genai.Client holds no resources that need releasing.
func (p *geminiIntentParser) Close() error {
	return nil
}
