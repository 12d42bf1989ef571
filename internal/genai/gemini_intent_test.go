package genai

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestNewGeminiIntentParser_NilWithEmptyKey(t *testing.T) {
	t.Parallel()
	parser, err := newGeminiIntentParser(context.Background(), "", "")
	if err != nil {
		t.Errorf("expected nil error for empty key, got: %v", err)
	}
	if parser != nil {
		t.Error("expected nil parser for empty key")
	}
}

func TestGeminiIntentParser_ParseNil(t *testing.T) {
	t.Parallel()
	var p *geminiIntentParser
	if _, err := p.Parse(context.Background(), "hola"); err == nil {
		t.Error("expected error for nil parser")
	}
	if p.IsEnabled() {
		t.Error("nil parser must not be enabled")
	}
	if p.Provider() != ProviderGemini {
		t.Errorf("Provider() = %v", p.Provider())
	}
}

func functionCallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{Text: "pensando"},
					{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
				},
			},
		}},
	}
}

func TestParseGeminiResponse(t *testing.T) {
	t.Parallel()

	res, err := parseGeminiResponse(functionCallResponse(FuncGetPrice, map[string]any{ParamCourseName: "excel básico"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "consultar_precio" || res.Param(ParamCourseName) != "excel básico" {
		t.Errorf("unexpected result %+v", res)
	}

	invalid := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "hola"}}}}}},
	}
	for i, resp := range invalid {
		if _, err := parseGeminiResponse(resp); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("case %d: err = %v, want ErrInvalidResponse", i, err)
		}
	}

	if _, err := parseGeminiResponse(functionCallResponse("direct_reply", nil)); ClassifyError(err) != ActionFallback {
		t.Errorf("unknown function should fall back, got %v", err)
	}
}
