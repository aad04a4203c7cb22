package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newTestDeepInfra(baseURL string, timeout time.Duration) *DeepInfraUsecase {
	return NewDeepInfraUsecase(
		config.DeepInfra{
			BaseURL:     baseURL,
			Timeout:     timeout,
			Temperature: 0.7,
			MaxTokens:   2048,
		},
	)
}

func TestDeepInfra_Invoke(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/chat/completions", r.URL.Path)
				require.Equal(t, "python-client", r.Header.Get("X-Deepinfra-Source"))
				require.Equal(t, "application/json", r.Header.Get("Accept"))
				require.Empty(t, r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
			},
		),
	)
	defer server.Close()

	reply, err := newTestDeepInfra(server.URL, 5*time.Second).Invoke(context.Background(), "microsoft/phi-4", "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "hello", reply)

	require.Equal(t, "microsoft/phi-4", payload["model"])
	require.InDelta(t, 0.7, payload["temperature"], 1e-6)
	require.EqualValues(t, 2048, payload["max_tokens"])
	require.Equal(t, []any{map[string]any{"role": "user", "content": "hi"}}, payload["messages"])
}

func TestDeepInfra_SendsAPIKey(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
			},
		),
	)
	defer server.Close()

	d := NewDeepInfraUsecase(config.DeepInfra{APIKey: "secret", BaseURL: server.URL, Timeout: 5 * time.Second})
	reply, err := d.Invoke(context.Background(), "microsoft/phi-4", "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "ok", reply)
}

func TestDeepInfra_ForwardsClientHistory(t *testing.T) {
	var payload struct {
		Messages []openai.ChatCompletionMessage `json:"messages"`
	}
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
			},
		),
	)
	defer server.Close()

	history := []model.Turn{
		{Role: model.TurnRoleSystem, Content: "be brief"},
		model.NewUserTurn("first"),
		model.NewAssistantTurn("answer"),
		model.NewUserTurn("second"),
	}
	_, err := newTestDeepInfra(server.URL, 5*time.Second).Invoke(context.Background(), "microsoft/phi-4", "ignored", history)
	require.NoError(t, err)
	require.Len(t, payload.Messages, 4)
	require.Equal(t, "system", payload.Messages[0].Role)
	require.Equal(t, "second", payload.Messages[3].Content)
}

func TestDeepInfra_TrimsHistoryOverTokenLimit(t *testing.T) {
	d := newTestDeepInfra("http://unused", time.Second)
	d.cfg.ContextTokenLimit = 25
	d.countTokens = func(messages []openai.ChatCompletionMessage, _ string) (int, error) {
		return len(messages) * 10, nil
	}

	messages := []openai.ChatCompletionMessage{
		{Role: "user", Content: "1"},
		{Role: "assistant", Content: "2"},
		{Role: "user", Content: "3"},
		{Role: "assistant", Content: "4"},
	}
	trimmed := d.trimHistory(context.Background(), messages, "m")
	require.Equal(t, messages[2:], trimmed)

	d.cfg.ContextTokenLimit = 1
	require.Equal(t, messages[3:], d.trimHistory(context.Background(), messages, "m"))
}

func TestDeepInfra_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error object", http.StatusBadRequest, `{"error":{"message":"model overloaded","type":"x"}}`, "model overloaded"},
		{"error string", http.StatusUnauthorized, `{"error":"bad key"}`, "bad key"},
		{"no structured error", http.StatusBadGateway, `upstream down`, "DeepInfra API returned status 502"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "DeepInfra API returned status 200"},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":""}}]}`, "DeepInfra API returned status 200"},
		{"malformed 200", http.StatusOK, `{"choices":`, "DeepInfra API returned status 200"},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				server := httptest.NewServer(
					http.HandlerFunc(
						func(w http.ResponseWriter, r *http.Request) {
							w.WriteHeader(tt.status)
							_, _ = w.Write([]byte(tt.body))
						},
					),
				)
				defer server.Close()

				_, err := newTestDeepInfra(server.URL, 5*time.Second).Invoke(context.Background(), "m", "hi", nil)
				var providerErr *model.ProviderError
				require.ErrorAs(t, err, &providerErr)
				require.Equal(t, model.ProviderErrorProtocol, providerErr.Kind)
				require.Equal(t, tt.wantMsg, providerErr.Message)
			},
		)
	}
}

func TestDeepInfra_Timeout(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
		),
	)
	defer server.Close()

	_, err := newTestDeepInfra(server.URL, 50*time.Millisecond).Invoke(context.Background(), "m", "hi", nil)
	kind, ok := model.ProviderErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorTimeout, kind)
}

func TestDeepInfra_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	_, err := newTestDeepInfra(baseURL, time.Second).Invoke(context.Background(), "m", "hi", nil)
	var providerErr *model.ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, model.ProviderErrorConnection, providerErr.Kind)
	require.Equal(t, "Connection error - cannot reach DeepInfra server", providerErr.Message)
}
