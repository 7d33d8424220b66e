package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studiokb/linebridge/internal/core"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider is the fallback answer provider. Groq exposes an
// OpenAI-compatible API, so it rides on the openai client with a custom
// base URL.
type GroqProvider struct {
	client    *openai.Client
	modelName string
	hasKey    bool
}

func NewGroqProvider(apiKey, modelName string) *GroqProvider {
	conf := openai.DefaultConfig(apiKey)
	conf.BaseURL = groqBaseURL
	if modelName == "" {
		modelName = "gemma2-9b-it"
	}
	return &GroqProvider{
		client:    openai.NewClientWithConfig(conf),
		modelName: modelName,
		hasKey:    apiKey != "",
	}
}

func (g *GroqProvider) Name() string  { return "Groq" }
func (g *GroqProvider) Model() string { return g.modelName }

func (g *GroqProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !g.hasKey {
		return "", errors.New("GROQ_API_KEY is missing")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.modelName,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("groq chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ core.Provider = (*GroqProvider)(nil)
