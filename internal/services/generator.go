package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrGeneratorUnavailable is returned when no provider could produce a response.
var ErrGeneratorUnavailable = errors.New("generator unavailable")

// LLMGenerator dispatches prompts to the configured LLM provider.
type LLMGenerator struct {
	cfg config.GeneratorConfig
}

func NewGenerator(cfg *config.GeneratorConfig) *LLMGenerator {
	g := &LLMGenerator{}
	if cfg != nil {
		g.cfg = *cfg
	}
	if g.cfg.Provider == "" {
		g.cfg.Provider = "gemini"
	}
	return g
}

// Provider returns the normalized provider name.
func (g *LLMGenerator) Provider() string {
	return strings.ToLower(strings.TrimSpace(g.cfg.Provider))
}

func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrValidation)
	}

	timeout := time.Duration(g.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider := g.Provider()
	logger.Infof("[Generator] Using provider: %s, model: %s, baseURL: %s", provider, g.cfg.Model, g.cfg.BaseURL)

	start := time.Now()
	var (
		content string
		err     error
	)
	switch provider {
	case "gemini":
		content, err = g.callGemini(ctx, prompt)
	case "openai":
		content, err = g.callOpenAI(ctx, prompt)
	case "azure":
		content, err = g.callAzure(ctx, prompt)
	case "anthropic":
		content, err = g.callAnthropic(ctx, prompt)
	case "ollama":
		content, err = g.callOllama(ctx, prompt)
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrGeneratorUnavailable, provider)
	}
	metrics.GeneratorDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty response from %s", ErrGeneratorUnavailable, provider)
	}
	logger.Infof("[Generator] %s response length: %d chars", provider, len(content))
	return content, nil
}

func (g *LLMGenerator) temperature() float32 {
	if g.cfg.Temperature > 0 {
		return float32(g.cfg.Temperature)
	}
	return 0.4
}

func (g *LLMGenerator) maxTokens() int {
	if g.cfg.MaxTokens > 0 {
		return g.cfg.MaxTokens
	}
	return 8192
}

// callGemini sends a generateContent request with a single text part and reads
// the concatenated text of the first candidate.
func (g *LLMGenerator) callGemini(ctx context.Context, prompt string) (string, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  g.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := g.cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature()),
		MaxOutputTokens: int32(g.maxTokens()),
	})
	if err != nil {
		logger.Warnf("[Generator] Gemini API error: %v", err)
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

// callOpenAI handles OpenAI and OpenAI-compatible endpoints.
func (g *LLMGenerator) callOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(g.cfg.APIKey)
	if g.cfg.BaseURL != "" {
		clientConfig.BaseURL = g.cfg.BaseURL
	}
	return g.chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), "OpenAI", prompt)
}

// callAzure uses the model field as the deployment name.
func (g *LLMGenerator) callAzure(ctx context.Context, prompt string) (string, error) {
	if g.cfg.BaseURL == "" {
		return "", fmt.Errorf("%w: azure requires base_url", ErrGeneratorUnavailable)
	}
	clientConfig := openai.DefaultAzureConfig(g.cfg.APIKey, g.cfg.BaseURL)
	return g.chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), "Azure OpenAI", prompt)
}

func (g *LLMGenerator) chatCompletion(ctx context.Context, client *openai.Client, label, prompt string) (string, error) {
	model := g.cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature(),
		MaxTokens:   g.maxTokens(),
	})
	if err != nil {
		logger.Warnf("[Generator] %s API error: %v", label, err)
		return "", fmt.Errorf("%s API error: %w", label, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices from %s", ErrGeneratorUnavailable, label)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *LLMGenerator) callAnthropic(ctx context.Context, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(g.cfg.APIKey)}
	if g.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(g.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := g.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(g.maxTokens()),
		Temperature: anthropic.Float(float64(g.temperature())),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		logger.Warnf("[Generator] Anthropic API error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (g *LLMGenerator) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := g.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := g.cfg.Model
	if model == "" {
		model = "llama3"
	}

	stream := false
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:  model,
		Stream: &stream,
		Format: []byte(`"json"`),
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": g.temperature(),
			"num_predict": g.maxTokens(),
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		logger.Warnf("[Generator] Ollama API error: %v", err)
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}
