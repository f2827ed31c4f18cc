package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{
			name: "DeepSeek config",
			cfg: &LLMConfig{
				Provider:    "deepseek",
				Model:       "deepseek-chat",
				APIKey:      "test-key",
				BaseURL:     "https://api.deepseek.com",
				MaxTokens:   2048,
				Temperature: 0.7,
			},
		},
		{
			name: "OpenAI config",
			cfg:  &LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "test-key"},
		},
		{
			name: "Ollama config",
			cfg:  &LLMConfig{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"},
		},
		{
			name:        "Unsupported provider",
			cfg:         &LLMConfig{Provider: "unsupported"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
		{Role: "tool", Content: "unknown roles become user"},
	})

	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
	assert.Equal(t, "user", out[3].Role)
}

func TestFormatMessages(t *testing.T) {
	messages := FormatMessages("System prompt", "Current message")
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, Message{Role: "user", Content: "Current message"}, messages[1])

	assert.Len(t, FormatMessages("", "only user"), 1)
}

// newFakeChatServer serves /chat/completions. Streaming requests get one SSE chunk per word.
func newFakeChatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": answer},
				}},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for i, word := range strings.Fields(answer) {
			if i > 0 {
				word = " " + word
			}
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"model":   req.Model,
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": word}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMService_Chat(t *testing.T) {
	srv := newFakeChatServer(t, "Use React with TypeScript.")
	svc, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "gpt-test", APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	answer, err := svc.Chat(context.Background(), FormatMessages("context", "which framework?"))
	require.NoError(t, err)
	assert.Equal(t, "Use React with TypeScript.", answer)
}

func TestLLMService_ChatStream(t *testing.T) {
	srv := newFakeChatServer(t, "Use React with TypeScript.")
	svc, err := NewLLMService(&LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	contentChan, errChan := svc.ChatStream(ctx, FormatMessages("", "which framework?"))
	var sb strings.Builder
	for chunk := range contentChan {
		sb.WriteString(chunk)
	}
	assert.NoError(t, <-errChan)
	assert.Equal(t, "Use React with TypeScript.", sb.String())
}

func TestLLMService_ChatStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "m", APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	contentChan, errChan := svc.ChatStream(context.Background(), FormatMessages("", "hi"))
	for range contentChan {
	}
	assert.Error(t, <-errChan)
}
