package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Anthropic generates text with the Messages API.
type Anthropic struct {
	client   anthropic.Client
	defaults Defaults
}

// NewAnthropic creates an Anthropic generator.
func NewAnthropic(apiKey string, defaults Defaults) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewAnthropic: ANTHROPIC_API_KEY not set")
	}
	if defaults.Model == "" {
		defaults.Model = DefaultAnthropicModel
	}
	return &Anthropic{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaults: defaults,
	}, nil
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	req = a.defaults.apply(req)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(*req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic.Generate: messages call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
