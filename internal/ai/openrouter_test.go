package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const okResponse = `{
	"id": "gen-1",
	"model": "stepfun/step-3.5-flash:free",
	"choices": [{
		"message": {"role": "assistant", "content": "привет!"},
		"finish_reason": "stop"
	}]
}`

// sentRequest is the subset of the chat completion request the tests inspect
type sentRequest struct {
	Model       string   `json:"model"`
	Messages    []Turn   `json:"messages"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestOpenRouterClient(url string, timeout time.Duration) *OpenRouterClient {
	return newTestOpenRouterClientWithTemperature(url, timeout, DefaultTemperature)
}

func newTestOpenRouterClientWithTemperature(url string, timeout time.Duration, temperature float64) *OpenRouterClient {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "sk-or-test"}),
		},
	}
	return NewOpenRouterClient(httpClient, OpenRouterConfig{
		BaseURL:      url,
		Temperature:  temperature,
		Timeout:      timeout,
		SystemPrompt: "system prompt",
	})
}

func TestOpenRouterClient_Success(t *testing.T) {
	var received sentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		writeJSON(w, okResponse)
	}))
	defer server.Close()

	client := newTestOpenRouterClient(server.URL, time.Second)
	history := []Turn{NewUserTurn("q1"), NewAssistantTurn("a1")}

	reply, err := client.GetResponse(context.Background(), "q2", history)
	require.NoError(t, err)
	assert.Equal(t, "привет!", reply)

	assert.Equal(t, DefaultModel, received.Model)
	require.NotNil(t, received.Temperature)
	assert.Equal(t, DefaultTemperature, *received.Temperature)
	assert.Equal(t, DefaultMaxTokens, received.MaxTokens)
	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: "system prompt"},
		NewUserTurn("q1"),
		NewAssistantTurn("a1"),
		NewUserTurn("q2"),
	}, received.Messages)
}

func TestOpenRouterClient_SendsZeroTemperature(t *testing.T) {
	var received sentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(w, okResponse)
	}))
	defer server.Close()

	client := newTestOpenRouterClientWithTemperature(server.URL, time.Second, 0)
	_, err := client.GetResponse(context.Background(), "hi", nil)
	require.NoError(t, err)

	require.NotNil(t, received.Temperature, "a zero temperature must still be sent")
	assert.Equal(t, 0.0, *received.Temperature)
}

func TestOpenRouterClient_DoesNotModifyHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, okResponse)
	}))
	defer server.Close()

	client := newTestOpenRouterClient(server.URL, time.Second)
	history := make([]Turn, 2, 10)
	history[0] = NewUserTurn("q1")
	history[1] = NewAssistantTurn("a1")

	_, err := client.GetResponse(context.Background(), "q2", history)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	// The spare capacity of the caller's slice is left untouched
	assert.Equal(t, Turn{}, history[:3][2])
}

func TestOpenRouterClient_UpstreamStatus(t *testing.T) {
	longBody := strings.Repeat("ж", 500)
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(longBody))
	}))
	defer server.Close()

	client := newTestOpenRouterClient(server.URL, time.Second)
	_, err := client.GetResponse(context.Background(), "hi", nil)
	require.Error(t, err)

	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindUpstreamStatus, ce.Kind)
	assert.Equal(t, http.StatusBadGateway, ce.StatusCode)
	assert.NotEmpty(t, ce.Body)
	assert.LessOrEqual(t, len([]rune(ce.Body)), 200)
	assert.Equal(t, 1, requests, "failed requests must not be retried")
}

func TestOpenRouterClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestOpenRouterClient(server.URL, 50*time.Millisecond)
	_, err := client.GetResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout), "expected timeout, got %v", err)
}

func TestOpenRouterClient_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestOpenRouterClient(url, time.Second)
	_, err := client.GetResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Equal(t, KindConnectionFailure, KindOf(err))
}

func TestOpenRouterClient_MalformedResponse(t *testing.T) {
	bodies := map[string]string{
		"no choices":      `{"choices": []}`,
		"missing choices": `{"id": "x"}`,
		"no message":      `{"choices": [{"finish_reason": "stop"}]}`,
		"no content":      `{"choices": [{"message": {"role": "assistant"}}]}`,
		"null content":    `{"choices": [{"message": {"role": "assistant", "content": null}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, body)
			}))
			defer server.Close()

			client := newTestOpenRouterClient(server.URL, time.Second)
			_, err := client.GetResponse(context.Background(), "hi", nil)
			require.Error(t, err)
			assert.Equal(t, KindMalformedResponse, KindOf(err))
		})
	}
}

func TestOpenRouterClient_NotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	client := newTestOpenRouterClient(server.URL, time.Second)
	_, err := client.GetResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestOpenRouterClient_Defaults(t *testing.T) {
	client := NewOpenRouterClient(nil, OpenRouterConfig{})
	assert.Equal(t, DefaultOpenRouterBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultModel, client.config.Model)
	assert.Equal(t, DefaultMaxTokens, client.config.MaxTokens)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Zero(t, client.config.Temperature)
}
