package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAICompatProvider talks to any OpenAI-compatible chat completions API
// (DeepSeek, OpenAI, GLM).
type OpenAICompatProvider struct {
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

func NewOpenAICompatProvider(apiURL, apiKey, model string, timeout time.Duration) (*OpenAICompatProvider, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("chat completions URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &OpenAICompatProvider{
		apiURL:  apiURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{},
	}, nil
}

func (p *OpenAICompatProvider) Classify(ctx context.Context, req ClassifyRequest) (Verdict, error) {
	content, err := p.complete(ctx, classifySystemPrompt, classifyUserPrompt(req))
	if err != nil {
		return Verdict{}, err
	}
	var verdict Verdict
	if err := decodeJSONContent(content, &verdict); err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

func (p *OpenAICompatProvider) GenerateTags(ctx context.Context, req TagRequest) (TagResult, error) {
	content, err := p.complete(ctx, tagSystemPrompt, tagUserPrompt(req))
	if err != nil {
		return TagResult{}, err
	}
	return decodeTags(content)
}

func (p *OpenAICompatProvider) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return chatResp.Choices[0].Message.Content, nil
}
