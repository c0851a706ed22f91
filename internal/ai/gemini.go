package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider calls Gemini through the genai SDK with JSON response schemas.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isEducational": {Type: genai.TypeBoolean, Description: "Whether the content is educational."},
		"reason":        {Type: genai.TypeString, Description: "Brief explanation of the decision."},
	},
	Required: []string{"isEducational", "reason"},
}

var tagsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "3-5 relevant educational tags.",
		},
	},
	Required: []string{"tags"},
}

func (g *GeminiProvider) Classify(ctx context.Context, req ClassifyRequest) (Verdict, error) {
	var verdict Verdict
	content, err := g.generate(ctx, classifySystemPrompt, classifyUserPrompt(req), verdictSchema, nil)
	if err != nil {
		return Verdict{}, err
	}
	if err := decodeJSONContent(content, &verdict); err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

func (g *GeminiProvider) GenerateTags(ctx context.Context, req TagRequest) (TagResult, error) {
	safety := []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	}
	content, err := g.generate(ctx, tagSystemPrompt, tagUserPrompt(req), tagsSchema, safety)
	if err != nil {
		return TagResult{}, err
	}
	return decodeTags(content)
}

func (g *GeminiProvider) generate(ctx context.Context, system, user string, schema *genai.Schema, safety []*genai.SafetySetting) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	temperature := float32(0.2)
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temperature,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    schema,
			SafetySettings:    safety,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
