package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// SystemPrompt frames the model as a domain assistant answering only from
// the supplied context, citing sources by their bracketed number.
const SystemPrompt = `You are an expert in Islamic finance and Shariah compliance. Answer the question using ONLY the provided context from official documents.
Rules:
1) Base every claim on the context. If the context does not contain enough information, say so.
2) Cite sources by their bracketed number, e.g. [1] or [2], matching the numbering in the context.
3) Include specific details from the documents when relevant.`

// BuildUserMessage builds the user message with context + question.
func BuildUserMessage(contextBlock, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}

// LLMResponse holds the LLM's response text and token usage.
type LLMResponse struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Generator is the text-completion capability the orchestrator depends on.
// Failures are returned as errors, structurally distinct from a successful
// empty response.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (*LLMResponse, error)
	Provider() string
	Model() string
}

// OllamaGenerator talks to a local or remote Ollama server.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates an OllamaGenerator for the given base URL.
func NewOllamaGenerator(baseURL, model string) (*OllamaGenerator, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama URL: %w", err)
	}
	return &OllamaGenerator{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// Generate sends a non-streaming chat request and returns the full reply.
func (g *OllamaGenerator) Generate(ctx context.Context, systemPrompt, userMessage string) (*LLMResponse, error) {
	start := time.Now()

	stream := false
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Stream: &stream,
	}

	var sb strings.Builder
	var promptTokens, completionTokens int
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			promptTokens = resp.PromptEvalCount
			completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &LLMResponse{
		Text:             sb.String(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Latency:          time.Since(start),
	}, nil
}

// Provider returns "ollama".
func (g *OllamaGenerator) Provider() string { return "ollama" }

// Model returns the configured model name.
func (g *OllamaGenerator) Model() string { return g.model }

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIGenerator creates an OpenAIGenerator.
func NewOpenAIGenerator(apiKey, model string, maxTokens int) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate sends a chat completion request and returns the reply and usage.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userMessage string) (*LLMResponse, error) {
	start := time.Now()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		MaxCompletionTokens: openai.Int(int64(g.maxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &LLMResponse{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		Latency:          time.Since(start),
	}, nil
}

// Provider returns "openai".
func (g *OpenAIGenerator) Provider() string { return "openai" }

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string { return g.model }
