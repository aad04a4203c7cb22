package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	"github.com/sashabaranov/go-openai"
)

const (
	openRouterServerName = "OpenRouter"
	chatFreeServerName   = "ChatFree"
)

var openRouterHeaders = map[string]string{
	"Content-Type": "application/json",
	"HTTP-Referer": "https://ng-ai-agent.repl.co",
	"X-Title":      "NG AI Agent",
}

var chatFreeHeaders = map[string]string{
	"authority":       "chatfreeai.com",
	"accept":          "*/*",
	"accept-language": "en-US,en;q=0.9",
	"content-type":    "application/json",
	"origin":          "https://chatfreeai.com",
	"referer":         "https://chatfreeai.com/",
	"user-agent":      "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Mobile Safari/537.36",
}

// OpenRouterUsecase serves "openrouter/..." models. With an API key it calls
// OpenRouter directly; without one it falls back to the conversational
// ChatFree endpoint wrapped in a Continuation.
type OpenRouterUsecase struct {
	cfg          config.OpenRouter
	client       *openai.Client
	continuation *Continuation
}

func NewOpenRouterUsecase(cfg config.OpenRouter) *OpenRouterUsecase {
	usecase := &OpenRouterUsecase{
		cfg: cfg,
	}
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = cfg.BaseURL
		clientConfig.HTTPClient = newHTTPClient(cfg.Timeout, openRouterHeaders, false)
		usecase.client = openai.NewClientWithConfig(clientConfig)
		return usecase
	}
	usecase.continuation = NewContinuation(
		NewChatFreeClient(cfg.ChatFreeURL, cfg.Timeout), cfg.MaxContinuations, cfg.ContinuationDelay,
	)
	return usecase
}

func (o *OpenRouterUsecase) Privileged() bool {
	return o.client != nil
}

// Invoke strips every "openrouter/" occurrence from modelID before sending it.
// History is not forwarded in either mode.
func (o *OpenRouterUsecase) Invoke(ctx context.Context, modelID, msg string, _ []model.Turn) (string, error) {
	cleanModel := strings.ReplaceAll(modelID, model.OpenRouterPrefix, "")
	logger := observability.WithFields(
		ctx, "provider", model.ProviderOpenRouter, "model", cleanModel, "privileged", o.Privileged(),
	)
	start := time.Now()

	var (
		reply string
		err   error
	)
	if o.Privileged() {
		reply, err = o.invokePrivileged(ctx, cleanModel, msg)
	} else {
		reply, err = o.continuation.Run(ctx, cleanModel, msg)
	}
	if err != nil {
		logger.Error("openrouter request failed", "error", err)
		return "", err
	}
	logger.Info("openrouter reply received", "chars", len(reply), "elapsed", time.Since(start))
	return reply, nil
}

func (o *OpenRouterUsecase) invokePrivileged(ctx context.Context, cleanModel, msg string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: cleanModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    OpenAIRoleUser,
				Content: msg,
			},
		},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if providerErr := classifyTransportError(model.ProviderOpenRouter, openRouterServerName, err); providerErr != nil {
			return "", providerErr
		}
		status, ok := upstreamStatus(err)
		if !ok {
			status = http.StatusOK
		}
		return "", protocolError(model.ProviderOpenRouter, fmt.Sprintf("API error: %d", status), err)
	}
	if len(resp.Choices) == 0 {
		return "", protocolError(model.ProviderOpenRouter, fmt.Sprintf("API error: %d", http.StatusOK), nil)
	}
	return resp.Choices[0].Message.Content, nil
}

type chatFreePart struct {
	Text string `json:"text"`
}

type chatFreeTurn struct {
	Role  string         `json:"role"`
	Parts []chatFreePart `json:"parts"`
}

type chatFreeRequest struct {
	Model   string         `json:"model"`
	Message string         `json:"message"`
	History []chatFreeTurn `json:"history"`
}

// ChatFreeClient calls the conversational endpoint used when no OpenRouter
// key is configured.
type ChatFreeClient struct {
	url        string
	httpClient *http.Client
}

func NewChatFreeClient(url string, timeout time.Duration) *ChatFreeClient {
	return &ChatFreeClient{
		url:        url,
		httpClient: newHTTPClient(timeout, chatFreeHeaders, false),
	}
}

func (c *ChatFreeClient) Converse(ctx context.Context, modelName, msg string, history []model.Turn) (string, error) {
	turns := make([]chatFreeTurn, 0, len(history))
	for _, turn := range history {
		turns = append(
			turns, chatFreeTurn{
				Role:  string(turn.Role),
				Parts: []chatFreePart{{Text: turn.Content}},
			},
		)
	}
	payload, err := json.Marshal(
		chatFreeRequest{
			Model:   modelName,
			Message: msg,
			History: turns,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat-free request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat-free request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.requestFailed(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.requestFailed(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", protocolError(model.ProviderOpenRouter, fmt.Sprintf("API error: %d", resp.StatusCode), nil)
	}
	return extractChatFreeReply(body), nil
}

func (c *ChatFreeClient) requestFailed(err error) error {
	if providerErr := classifyTransportError(model.ProviderOpenRouter, chatFreeServerName, err); providerErr != nil {
		return providerErr
	}
	return protocolError(model.ProviderOpenRouter, err.Error(), err)
}
