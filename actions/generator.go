package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator performs text generation via an OpenAI-compatible API.
type Generator struct {
	baseURL     string
	apiKey      string
	model       string
	apiType     string // "responses" or "chat_completions"
	maxTokens   int
	temperature float64
	stop        []string
	telemetry   bool // send OpenRouter attribution headers
	client      *http.Client
}

// GeneratorConfig holds the settings for NewGenerator.
type GeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	APIType     string
	MaxTokens   int
	Temperature float64
	Stop        []string
	Telemetry   bool
}

// NewGenerator creates a generator from config.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		apiType:     cfg.APIType,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		stop:        cfg.Stop,
		telemetry:   cfg.Telemetry,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Model returns the model name.
func (g *Generator) Model() string { return g.model }

// Generate sends a completion request to the API and returns the response text.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if g.apiType == "chat_completions" {
		return g.generateChatCompletions(ctx, systemPrompt, userMessage)
	}
	return g.generateResponses(ctx, systemPrompt, userMessage)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Responses API ---

type responsesRequest struct {
	Model       string    `json:"model"`
	Input       []message `json:"input"`
	MaxTokens   int       `json:"max_output_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Error *apiError `json:"error,omitempty"`
}

func (g *Generator) generateResponses(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	var result responsesResponse
	err := g.post(ctx, "/responses", responsesRequest{
		Model: g.model,
		Input: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Stop:        g.stop,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	for _, out := range result.Output {
		if out.Type != "message" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" {
				return c.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// --- Chat Completions API ---

type chatCompletionsRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

func (g *Generator) generateChatCompletions(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	var result chatCompletionsResponse
	err := g.post(ctx, "/chat/completions", chatCompletionsRequest{
		Model: g.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Stop:        g.stop,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// post sends body as JSON to path and decodes the reply into out.
func (g *Generator) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// setHeaders sets common headers for API requests.
func (g *Generator) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if g.telemetry {
		req.Header.Set("X-Title", "glance - command palette")
		req.Header.Set("HTTP-Referer", "https://github.com/Paranoid-AF/glance")
	}
}
