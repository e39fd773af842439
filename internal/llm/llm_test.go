package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
)

// MockClient is a testify mock of Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

func (m *MockClient) Name() string {
	return m.Called().String(0)
}

func TestNew_Providers(t *testing.T) {
	t.Setenv(EnvAnthropicAPIKey, "")
	t.Setenv(EnvGeminiAPIKey, "")

	client, err := New(context.Background(), Options{Provider: "static"})
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic, client.Name())

	_, err = New(context.Background(), Options{Provider: "anthropic"})
	require.Error(t, err)
	assert.Equal(t, "CONFIGURATION-001", apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), EnvAnthropicAPIKey)

	_, err = New(context.Background(), Options{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvGeminiAPIKey)

	_, err = New(context.Background(), Options{Provider: "openai"})
	require.Error(t, err)
	assert.Equal(t, "CONFIGURATION-002", apperrors.GetErrorCode(err))
}

func TestNew_UsesEnvironmentKeyAndRateLimit(t *testing.T) {
	t.Setenv(EnvAnthropicAPIKey, "sk-test")

	client, err := New(context.Background(), Options{Provider: "claude", RequestsPerSecond: 5})
	require.NoError(t, err)

	_, ok := client.(*RateLimited)
	assert.True(t, ok)
	assert.Equal(t, ProviderAnthropic, client.Name())
}

func TestProviderConfigured(t *testing.T) {
	t.Setenv(EnvAnthropicAPIKey, "key")
	t.Setenv(EnvGeminiAPIKey, "")

	assert.True(t, ProviderConfigured("anthropic"))
	assert.False(t, ProviderConfigured("gemini"))
	assert.True(t, ProviderConfigured("static"))
	assert.False(t, ProviderConfigured("unknown"))
}

func TestStaticClient_Deterministic(t *testing.T) {
	client := NewStaticClient("")
	req := Request{
		System: "You are a researcher",
		Prompt: "Research the topic\nmore detail",
		Label:  "research",
	}

	first, err := client.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Draft research.\n\nResearch the topic", first.Text)
	assert.Equal(t, DefaultStaticModel, first.Model)
	assert.Equal(t, 9, first.InputTokens)
}

func TestStaticClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticClient("m").Generate(ctx, Request{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimited_DelegatesToClient(t *testing.T) {
	next := &MockClient{}
	req := Request{Prompt: "hello"}
	next.On("Generate", mock.Anything, req).Return(&Response{Text: "hi"}, nil).Twice()
	next.On("Name").Return("mock")

	limited := NewRateLimited(next, 1000, 0)
	for i := 0; i < 2; i++ {
		resp, err := limited.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "hi", resp.Text)
	}
	assert.Equal(t, "mock", limited.Name())
	next.AssertExpectations(t)
}

func TestRateLimited_WaitRespectsContext(t *testing.T) {
	next := &MockClient{}
	next.On("Generate", mock.Anything, mock.Anything).Return(&Response{Text: "ok"}, nil).Once()

	limited := NewRateLimited(next, 0.001, 1)
	_, err := limited.Generate(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, Request{})
	require.Error(t, err)
	next.AssertNumberOfCalls(t, "Generate", 1)
}

func TestAnthropicClient_Generate(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  Generated section  "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("sk-test", "claude-test", server.URL)
	resp, err := client.Generate(context.Background(), Request{
		System:    "system prompt",
		Prompt:    "user prompt",
		MaxTokens: 256,
		Label:     "research",
	})

	require.NoError(t, err)
	assert.Equal(t, "Generated section", resp.Text)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)

	assert.Equal(t, "claude-test", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])
}

func TestAnthropicClient_ErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"rate limit exceeded"}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("sk-test", "", server.URL)
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})

	require.Error(t, err)
	assert.Equal(t, "LLM-003", apperrors.GetErrorCode(err))
	assert.True(t, apperrors.IsRetryableError(err))
}

func TestAnthropicClient_InvalidRequestIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"model: unknown-model"}}`)
	}))
	defer server.Close()

	_, err := NewAnthropicClient("sk-test", "unknown-model", server.URL).Generate(context.Background(), Request{Prompt: "x"})

	require.Error(t, err)
	assert.Equal(t, "LLM-005", apperrors.GetErrorCode(err))
	assert.False(t, apperrors.IsRetryableError(err))
}

func TestAnthropicClient_EmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"max_tokens","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer server.Close()

	_, err := NewAnthropicClient("sk-test", "m", server.URL).Generate(context.Background(), Request{Prompt: "x"})

	require.Error(t, err)
	assert.Equal(t, "LLM-004", apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestGeminiClient_Generate(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Gemini draft"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3}
		}`)
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), "key", "gemini-test", server.URL)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{System: "sys", Prompt: "prompt", Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Gemini draft", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 7, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.True(t, strings.Contains(path, "gemini-test"), path)
}

func TestTokenizer_CountAndTruncate(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, 0, tok.Count(""))

	short := "a short context"
	assert.Equal(t, short, tok.TruncateFront(short, 1000))
	assert.Equal(t, "", tok.TruncateFront(short, 0))

	long := strings.Repeat("content marketing trends in the region ", 200)
	require.Greater(t, tok.Count(long), 50)

	trimmed := tok.TruncateFront(long, 50)
	assert.True(t, strings.HasSuffix(long, trimmed))
	assert.LessOrEqual(t, tok.Count(trimmed), 52)
	assert.Less(t, len(trimmed), len(long))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("a"))
	assert.Equal(t, 2, estimateTokens("abcdefgh"))
	assert.Equal(t, 3, estimateTokens("abcdefghi"))
}
