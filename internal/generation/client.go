package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Generator is the boundary to the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, req Request) (RawOutput, error)
}

const (
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel    = "gpt-4o-mini"
	defaultMaxTokens      = 2048
)

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicGenerator(apiKey, model string, opts ...option.RequestOption) *AnthropicGenerator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (RawOutput, error) {
	log.Printf("llm generate provider=anthropic model=%s payload=%d", g.model, len(req.Payload))
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Payload)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return RawOutput{}, fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return TextOutput(block.Text), nil
		}
	}
	return RawOutput{}, fmt.Errorf("no text content in anthropic response")
}

// OpenAIGenerator calls the chat completions endpoint in JSON mode.
type OpenAIGenerator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

func NewOpenAIGenerator(apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		apiKey:   apiKey,
		model:    model,
		endpoint: openAIEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithEndpoint points the generator at a compatible server.
func (g *OpenAIGenerator) WithEndpoint(url string) *OpenAIGenerator {
	g.endpoint = url
	return g
}

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (RawOutput, error) {
	body, err := json.Marshal(openAIRequest{
		Model: g.model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: req.Payload},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return RawOutput{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return RawOutput{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	log.Printf("llm generate provider=openai model=%s payload=%d", g.model, len(req.Payload))
	resp, err := g.client.Do(httpReq)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return RawOutput{}, fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawOutput{}, fmt.Errorf("reading response: %w", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return RawOutput{}, fmt.Errorf("parsing openai response: %w", err)
	}
	if parsed.Error != nil {
		return RawOutput{}, fmt.Errorf("openai API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return RawOutput{}, fmt.Errorf("no choices in openai response")
	}
	return TextOutput(parsed.Choices[0].Message.Content), nil
}

// StaticGenerator returns a fixed output; used when no provider key is configured and in tests.
type StaticGenerator struct {
	Output RawOutput
	Err    error
}

func (g StaticGenerator) Generate(ctx context.Context, _ Request) (RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}
	return g.Output, g.Err
}

// DefaultStaticOutput is served by the fallback generator.
func DefaultStaticOutput() RawOutput {
	return StructuredOutput(map[string]any{
		"questions": []any{
			map[string]any{"text": "How would you rate the event overall?", "type": "rating"},
			map[string]any{"text": "How relevant was the content to you?", "type": "rating"},
			map[string]any{"text": "What should we change next time?", "type": "text"},
		},
	})
}
