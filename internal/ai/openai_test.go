package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAICompatClassify(t *testing.T) {
	srv := chatServer(t, "```json\n{\"isEducational\": true, \"reason\": \"Explains physics.\"}\n```", http.StatusOK)
	p, err := NewOpenAICompatProvider(srv.URL, "test-key", "deepseek-chat", time.Second)
	require.NoError(t, err)

	verdict, err := p.Classify(context.Background(), ClassifyRequest{Title: "Quantum", Description: "Intro", FileType: "application/pdf"})
	require.NoError(t, err)
	assert.True(t, verdict.IsEducational)
	assert.Equal(t, "Explains physics.", verdict.Reason)
}

func TestOpenAICompatGenerateTags(t *testing.T) {
	srv := chatServer(t, `{"tags": ["physics", "quantum", "science"]}`, http.StatusOK)
	p, err := NewOpenAICompatProvider(srv.URL, "test-key", "deepseek-chat", time.Second)
	require.NoError(t, err)

	result, err := p.GenerateTags(context.Background(), TagRequest{Title: "Quantum", ContentType: ContentPDF})
	require.NoError(t, err)
	assert.Equal(t, []string{"physics", "quantum", "science"}, result.Tags)
}

func TestOpenAICompatErrors(t *testing.T) {
	srv := chatServer(t, "", http.StatusBadGateway)
	p, err := NewOpenAICompatProvider(srv.URL, "test-key", "m", time.Second)
	require.NoError(t, err)
	_, err = p.Classify(context.Background(), ClassifyRequest{})
	assert.ErrorContains(t, err, "502")

	empty := chatServer(t, "   ", http.StatusOK)
	p, err = NewOpenAICompatProvider(empty.URL, "test-key", "m", time.Second)
	require.NoError(t, err)
	_, err = p.GenerateTags(context.Background(), TagRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestDecodeTagsBareArray(t *testing.T) {
	result, err := decodeTags("```json\n[\"a\", \"b\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Tags)
}

func TestContentTypeFromMIME(t *testing.T) {
	assert.Equal(t, ContentImage, ContentTypeFromMIME("image/png"))
	assert.Equal(t, ContentVideo, ContentTypeFromMIME("video/mp4"))
	assert.Equal(t, ContentPDF, ContentTypeFromMIME("application/pdf"))
	assert.Equal(t, ContentText, ContentTypeFromMIME("text/plain"))
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderConfig{Provider: "nope"})
	assert.Error(t, err)
}
