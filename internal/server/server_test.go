package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/server"
	in_memory "github.com/iamvkosarev/llm-relay/internal/storage/in-memory"
	"github.com/iamvkosarev/llm-relay/internal/usecase"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) Invoke(context.Context, string, string, []model.Turn) (string, error) {
	return s.reply, s.err
}

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	history *usecase.HistoryUsecase
}

func newTestEnv(t *testing.T, providers map[model.Provider]usecase.ChatProvider) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.HTTP{CookieName: "session", SessionTTL: time.Hour}, providers)
}

func newTestEnvWithConfig(
	t *testing.T,
	cfg config.HTTP,
	providers map[model.Provider]usecase.ChatProvider,
) *testEnv {
	t.Helper()

	history := usecase.NewHistoryUsecase(usecase.HistoryUsecaseDeps{HistoryStorage: in_memory.NewHistoryStorage()})
	catalog := usecase.NewCatalogUsecase(usecase.CatalogUsecaseDeps{}, usecase.DefaultCatalogTTL)
	handler := server.NewServer(
		cfg,
		server.ServerDeps{
			Auth: usecase.NewAuthUsecase(
				usecase.AuthUsecaseDeps{SessionStorage: in_memory.NewSessionStorage()}, time.Hour,
			),
			Catalog: catalog,
			Chat: usecase.NewChatUsecase(
				usecase.ChatUsecaseDeps{
					Catalog:   catalog,
					History:   history,
					Providers: providers,
				},
			),
			History: history,
		},
	)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		server:  srv,
		client:  &http.Client{Jar: jar},
		history: history,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) login(t *testing.T, username string) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/login", map[string]string{"username": username, "password": "x"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Login successful", body["message"])
}

func deepInfraUpstream(t *testing.T, handler http.HandlerFunc) usecase.ChatProvider {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)
	return usecase.NewDeepInfraUsecase(
		config.DeepInfra{
			BaseURL:     upstream.URL,
			Timeout:     5 * time.Second,
			Temperature: 0.7,
			MaxTokens:   2048,
		},
	)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestChatRoundTripThroughHistory(t *testing.T) {
	provider := deepInfraUpstream(
		t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/chat/completions", r.URL.Path)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
		},
	)
	env := newTestEnv(t, map[model.Provider]usecase.ChatProvider{model.ProviderDeepInfra: provider})
	env.login(t, "alice")

	status, body := env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hi", "model": "microsoft/phi-4"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])
	require.Equal(t, "hello", body["response"])
	require.Equal(t, "hi", body["message"])
	require.Equal(t, "microsoft/phi-4", body["model"])
	require.NotEmpty(t, body["timestamp"])

	status, body = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, status)
	history := body["history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	require.Equal(t, "alice", entry["user_id"])
	require.Equal(t, "hi", entry["message"])
	require.Equal(t, "hello", entry["response"])
	require.NotContains(t, entry, "provider")
}

func TestChatUnknownModel(t *testing.T) {
	env := newTestEnv(t, map[model.Provider]usecase.ChatProvider{model.ProviderDeepInfra: stubProvider{reply: "x"}})
	env.login(t, "alice")

	status, body := env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hi", "model": "unknown/model"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Invalid model", body["error"])
	require.Empty(t, env.history.ListForUser(context.Background(), "alice"))
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "alice")

	status, body := env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "  ", "model": "microsoft/phi-4"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Message is required", body["error"])

	status, body = env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Model is required", body["error"])
}

func TestChatProviderFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{
			name: "timeout",
			err: &model.ProviderError{
				Provider: model.ProviderVenice, Kind: model.ProviderErrorTimeout, Message: "slow",
			},
			status: http.StatusGatewayTimeout,
			text:   "Request timeout. The AI model took too long to respond.",
		},
		{
			name: "connection",
			err: &model.ProviderError{
				Provider: model.ProviderVenice, Kind: model.ProviderErrorConnection,
				Message: "Connection error - cannot reach Venice server",
			},
			status: http.StatusServiceUnavailable,
			text:   "Network error: Connection error - cannot reach Venice server",
		},
		{
			name: "protocol",
			err: &model.ProviderError{
				Provider: model.ProviderVenice, Kind: model.ProviderErrorProtocol, Message: "API error: 500",
			},
			status: http.StatusInternalServerError,
			text:   "Error: API error: 500",
		},
	}
	for _, c := range cases {
		t.Run(
			c.name, func(t *testing.T) {
				env := newTestEnv(t, map[model.Provider]usecase.ChatProvider{model.ProviderVenice: stubProvider{err: c.err}})
				env.login(t, "alice")

				status, body := env.do(
					t, http.MethodPost, "/api/chat", map[string]string{"message": "hi", "model": "venice/worm-gpt"},
				)
				require.Equal(t, c.status, status)
				require.Equal(t, false, body["success"])
				require.Equal(t, c.text, body["error"])
				require.Empty(t, env.history.ListForUser(context.Background(), "alice"))
			},
		)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/history"},
		{http.MethodDelete, "/api/history/delete/0"},
		{http.MethodDelete, "/api/history/clear"},
	} {
		status, body := env.do(t, route.method, route.path, map[string]string{})
		require.Equal(t, http.StatusUnauthorized, status, route.path)
		require.Equal(t, "Not authenticated", body["error"])
	}
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": " "})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Invalid credentials", body["error"])
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "alice")

	status, _ := env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])

	status, _ = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestDeleteAndClearHistory(t *testing.T) {
	env := newTestEnv(t, map[model.Provider]usecase.ChatProvider{model.ProviderDeepInfra: stubProvider{reply: "ok"}})
	env.login(t, "alice")

	status, body := env.do(t, http.MethodDelete, "/api/history/delete/0", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid index", body["error"])

	for _, msg := range []string{"first", "second"} {
		status, _ = env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": msg, "model": "microsoft/phi-4"})
		require.Equal(t, http.StatusOK, status)
	}

	status, _ = env.do(t, http.MethodDelete, "/api/history/delete/0", nil)
	require.Equal(t, http.StatusOK, status)
	history := env.history.ListForUser(context.Background(), "alice")
	require.Len(t, history, 1)
	require.Equal(t, "second", history[0].Message)

	status, _ = env.do(t, http.MethodDelete, "/api/history/delete/abc", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodDelete, "/api/history/clear", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])
	require.Empty(t, env.history.ListForUser(context.Background(), "alice"))
}

func TestModelsListing(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, status)
	models := body["models"].([]any)
	require.EqualValues(t, len(models), body["total"])
	first := models[0].(map[string]any)
	require.Equal(t, "venice/worm-gpt", first["id"])
	require.Equal(t, "worm-gpt", first["name"])
	require.NotContains(t, first, "provider")
}

func TestLocalizedErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/history", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Требуется авторизация", body["error"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCORSOnlyForAllowedOrigins(t *testing.T) {
	env := newTestEnvWithConfig(
		t, config.HTTP{
			CookieName:     "session",
			SessionTTL:     time.Hour,
			AllowedOrigins: []string{"https://app.example/"},
		}, nil,
	)
	env.login(t, "alice")

	send := func(method, origin string) *http.Response {
		req, err := http.NewRequest(method, env.server.URL+"/api/history/clear", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := env.client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := send(http.MethodDelete, "https://evil.example")
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = send(http.MethodDelete, "https://app.example")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = send(http.MethodOptions, "https://app.example")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = send(http.MethodOptions, "https://evil.example")
	require.NotEqual(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabledByDefault(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/models", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
