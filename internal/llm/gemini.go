package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini generates text with the Google GenAI SDK.
type Gemini struct {
	client   *genai.Client
	defaults Defaults
}

// NewGemini creates a Gemini generator. An empty apiKey lets the SDK read
// GOOGLE_API_KEY or GEMINI_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey string, defaults Defaults) (*Gemini, error) {
	if defaults.Model == "" {
		defaults.Model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return &Gemini{client: client, defaults: defaults}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	req = g.defaults.apply(req)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.User}},
		},
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(*req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini.Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
