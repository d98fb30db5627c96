package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/finance-health/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose around", "Here you go:\n[1]\nHope this helps", `[1]`},
		{"no array", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestDecodeArray(t *testing.T) {
	rows, err := DecodeArray("```json\n[{\"date\":\"2025-01-03\",\"amount\":-4.5}]\n```")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-01-03", rows[0]["date"])
	assert.Equal(t, -4.5, rows[0]["amount"])

	_, err = DecodeArray("I could not find any transactions.")
	assert.ErrorIs(t, err, ErrNoJSONArray)

	_, err = DecodeArray("[{broken")
	assert.ErrorIs(t, err, ErrNoJSONArray)
}

func TestDefaultsApply(t *testing.T) {
	d := Defaults{Model: "m", Temperature: 0.3}

	req := d.apply(Request{User: "hi"})
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, 4096, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.3, *req.Temperature, 1e-9)

	req = d.apply(Request{Model: "other", MaxTokens: 10, Temperature: Float(0)})
	assert.Equal(t, "other", req.Model)
	assert.Equal(t, 10, req.MaxTokens)
	assert.Zero(t, *req.Temperature)
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderNone})
	assert.True(t, errors.Is(err, ErrDisabled))

	_, err = New(context.Background(), config.LLMConfig{Provider: config.ProviderAnthropic})
	assert.Error(t, err)

	_, err = New(context.Background(), config.LLMConfig{Provider: "ollama"})
	assert.Error(t, err)

	g, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderAnthropic, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, g)
}

func TestGeneratorFunc(t *testing.T) {
	var got Request
	g := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		got = req
		return "ok", nil
	})
	out, err := g.Generate(context.Background(), Request{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "u", got.User)
}
