// Package ai wraps the generative-AI collaborators: an educational-content
// classifier and a tag generator.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a provider answers without content.
var ErrEmptyResponse = errors.New("ai: empty response from provider")

// ContentType is the coarse media category sent to the tagger.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentPDF   ContentType = "pdf"
)

// ContentTypeFromMIME maps a MIME type onto its ContentType category.
func ContentTypeFromMIME(mime string) ContentType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return ContentImage
	case strings.HasPrefix(mime, "video/"):
		return ContentVideo
	case mime == "application/pdf":
		return ContentPDF
	default:
		return ContentText
	}
}

type ClassifyRequest struct {
	Title       string
	Description string
	FileType    string
}

// Verdict is the classifier's decision.
type Verdict struct {
	IsEducational bool   `json:"isEducational"`
	Reason        string `json:"reason"`
}

type TagRequest struct {
	Title       string
	Description string
	ContentType ContentType
}

type TagResult struct {
	Tags []string `json:"tags"`
}

// Classifier decides whether content is educational.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Verdict, error)
}

// Tagger produces 3-5 descriptive tags for content.
type Tagger interface {
	GenerateTags(ctx context.Context, req TagRequest) (TagResult, error)
}

// Provider implements both collaborators.
type Provider interface {
	Classifier
	Tagger
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// decodeJSONContent parses model output that may be wrapped in a markdown fence.
func decodeJSONContent(content string, v any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}

// decodeTags accepts either {"tags": [...]} or a bare JSON array.
func decodeTags(content string) (TagResult, error) {
	var result TagResult
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), "```json"))
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	if strings.HasPrefix(trimmed, "[") {
		if err := decodeJSONContent(content, &result.Tags); err != nil {
			return TagResult{}, err
		}
		return result, nil
	}
	if err := decodeJSONContent(content, &result); err != nil {
		return TagResult{}, err
	}
	return result, nil
}
