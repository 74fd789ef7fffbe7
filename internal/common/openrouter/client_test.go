package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinqo-prescriber/internal/common/config"
	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.Timeout = 2 * time.Second
	return cfg
}

func createChatResponse(content string) string {
	resp := map[string]interface{}{
		"id":     "gen-123",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, DefaultReferer, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, DefaultTitle, r.Header.Get("X-Title"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body["model"])
		assert.InDelta(t, 0.3, body["temperature"], 0.0001)
		assert.Equal(t, float64(1500), body["max_tokens"])
		assert.Equal(t, false, body["stream"])

		messages, _ := body["messages"].([]interface{})
		if !assert.Len(t, messages, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "be safe", messages[0].(map[string]interface{})["content"])
		assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
		assert.Equal(t, "the prompt", messages[1].(map[string]interface{})["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createChatResponse(`{"followUp":"rest"}`)))
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), logger.NewTestLogger(t))
	completion, err := client.Complete(context.Background(), "be safe", "the prompt")

	require.NoError(t, err)
	assert.Equal(t, `{"followUp":"rest"}`, completion.Content)
	assert.Equal(t, DefaultModel, completion.Model)
	assert.Equal(t, 200, completion.Usage.TotalTokens)
	assert.Equal(t, DefaultModel, client.Model())
}

func TestClient_Complete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		outcome string
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"overloaded"}`))
			},
			outcome: OutcomeUpstreamStatus,
			check: func(t *testing.T, err error) {
				var statusErr *UpstreamStatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
				assert.Contains(t, statusErr.Body, "overloaded")
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			outcome: OutcomeUpstreamStatus,
		},
		{
			name: "body is not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>gateway</html>"))
			},
			outcome: OutcomeMalformedEnvelope,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedEnvelope)
			},
		},
		{
			name: "choices missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"gen-1","model":"x"}`))
			},
			outcome: OutcomeMalformedEnvelope,
		},
		{
			name: "choices empty",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			outcome: OutcomeMalformedEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(createTestConfig(server.URL), logger.NewNoOpLogger())
			completion, err := client.Complete(context.Background(), "sys", "prompt")

			assert.Nil(t, completion)
			require.Error(t, err)
			assert.Equal(t, tt.outcome, Classify(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(createChatResponse("late")))
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(cfg, logger.NewNoOpLogger())

	_, err := client.Complete(context.Background(), "sys", "prompt")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, OutcomeTimeout, Classify(err))
}

func TestClient_Complete_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(createTestConfig(url), logger.NewNoOpLogger())
	_, err := client.Complete(context.Background(), "sys", "prompt")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, OutcomeTransport, Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Classify(nil))
	assert.Equal(t, OutcomeUnknown, Classify(errors.New("other")))
	assert.Equal(t, OutcomeUpstreamStatus, Classify(&UpstreamStatusError{StatusCode: 502}))
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(config.InferenceConfig{
		BaseURL:     "http://llm.local/v1",
		APIKey:      "sk-1",
		Model:       "m",
		Timeout:     1500,
		Temperature: 0.3,
		MaxTokens:   200,
	})

	assert.Equal(t, "http://llm.local/v1", cfg.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, float32(0.3), cfg.Temperature)
	assert.Equal(t, 200, cfg.MaxTokens)
	assert.Equal(t, DefaultReferer, cfg.Referer)

	defaults := ConfigFromApp(config.InferenceConfig{APIKey: "sk-1"})
	assert.Equal(t, DefaultBaseURL, defaults.BaseURL)
	assert.Equal(t, DefaultModel, defaults.Model)
	assert.Equal(t, DefaultTimeout, defaults.Timeout)
	assert.Equal(t, DefaultMaxTokens, defaults.MaxTokens)
}

func TestCode(t *testing.T) {
	assert.Equal(t, commonerrors.ErrCodeInferenceTimeout, Code(fmt.Errorf("%w: %w", ErrTransport, ErrTimeout)))
	assert.Equal(t, commonerrors.ErrCodeInferenceTransportFailed, Code(ErrTransport))
	assert.Equal(t, commonerrors.ErrCodeInferenceUpstreamStatus, Code(&UpstreamStatusError{StatusCode: 502}))
	assert.Equal(t, commonerrors.ErrCodeInferenceMalformedEnvelope, Code(ErrMalformedEnvelope))
	assert.Equal(t, commonerrors.ErrCodeInternal, Code(errors.New("other")))
}
