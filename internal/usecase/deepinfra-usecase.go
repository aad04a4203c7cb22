package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	openai_tools "github.com/iamvkosarev/llm-relay/pkg/openai-tools"
	"github.com/sashabaranov/go-openai"
)

const (
	OpenAIRoleUser      = "user"
	OpenAIRoleAssistant = "assistant"
	OpenAIRoleSystem    = "system"
)

const deepInfraServerName = "DeepInfra"

// TokenCounter estimates the prompt size of messages for a model.
type TokenCounter func(messages []openai.ChatCompletionMessage, model string) (int, error)

// DeepInfraUsecase talks to an OpenAI-compatible chat completions endpoint.
type DeepInfraUsecase struct {
	cfg         config.DeepInfra
	client      *openai.Client
	countTokens TokenCounter
}

func NewDeepInfraUsecase(cfg config.DeepInfra) *DeepInfraUsecase {
	headers := map[string]string{
		"Content-Type":       "application/json",
		"X-Deepinfra-Source": "python-client",
		"Accept":             "application/json",
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = newHTTPClient(cfg.Timeout, headers, cfg.APIKey == "")
	return &DeepInfraUsecase{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientConfig),
		countTokens: openai_tools.CountToken,
	}
}

// Invoke sends history as-is when the client supplied one, otherwise a single
// user turn built from msg.
func (d *DeepInfraUsecase) Invoke(ctx context.Context, modelID, msg string, history []model.Turn) (string, error) {
	logger := observability.WithFields(ctx, "provider", model.ProviderDeepInfra, "model", modelID)

	var messageHistory []openai.ChatCompletionMessage
	if len(history) > 0 {
		messageHistory = make([]openai.ChatCompletionMessage, 0, len(history))
		for _, turn := range history {
			messageHistory = append(
				messageHistory, openai.ChatCompletionMessage{
					Role:    parseTurnRoleToOpenAIRole(turn.Role),
					Content: turn.Content,
				},
			)
		}
		messageHistory = d.trimHistory(ctx, messageHistory, modelID)
	} else {
		messageHistory = []openai.ChatCompletionMessage{
			{
				Role:    OpenAIRoleUser,
				Content: msg,
			},
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    messageHistory,
		Temperature: d.cfg.Temperature,
		MaxTokens:   d.cfg.MaxTokens,
	}

	ctx, errorBody := withErrorBody(ctx)
	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if providerErr := classifyTransportError(model.ProviderDeepInfra, deepInfraServerName, err); providerErr != nil {
			logger.Error("deepinfra request failed", "kind", providerErr.Kind, "error", err)
			return "", providerErr
		}
		status, ok := upstreamStatus(err)
		if !ok {
			// go-openai only returns untyped errors here when a 200 body fails to decode.
			status = 200
		}
		errMsg := extractDeepInfraError(*errorBody, status)
		logger.Error("deepinfra api error", "status", status, "error", errMsg, "response", truncate(string(*errorBody), 500))
		return "", protocolError(model.ProviderDeepInfra, errMsg, err)
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		content := resp.Choices[0].Message.Content
		logger.Info("deepinfra reply received", "chars", len(content), "elapsed", time.Since(start))
		return content, nil
	}
	errMsg := fmt.Sprintf("DeepInfra API returned status %d", 200)
	logger.Error("deepinfra reply without content")
	return "", protocolError(model.ProviderDeepInfra, errMsg, nil)
}

// trimHistory drops the oldest turns while the prompt exceeds the configured
// token limit. The last turn is always kept.
func (d *DeepInfraUsecase) trimHistory(
	ctx context.Context,
	messageHistory []openai.ChatCompletionMessage,
	modelID string,
) []openai.ChatCompletionMessage {
	if d.cfg.ContextTokenLimit <= 0 {
		return messageHistory
	}
	logger := observability.LoggerFromContext(ctx)
	for len(messageHistory) > 1 {
		tokenCount, err := d.countTokens(messageHistory, modelID)
		if err != nil {
			logger.Warn("count token error, sending history untrimmed", "error", err)
			return messageHistory
		}
		if tokenCount <= d.cfg.ContextTokenLimit {
			break
		}
		messageHistory = messageHistory[1:]
		logger.Info("history trimmed due to token limit", "tokens", tokenCount, "limit", d.cfg.ContextTokenLimit)
	}
	return messageHistory
}

// extractDeepInfraError reads {"error": "..."} or {"error": {"message": "..."}}.
func extractDeepInfraError(body []byte, status int) string {
	errMsg := fmt.Sprintf("DeepInfra API returned status %d", status)
	var errorData struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &errorData); err != nil || len(errorData.Error) == 0 || string(errorData.Error) == "null" {
		return errMsg
	}
	var text string
	if err := json.Unmarshal(errorData.Error, &text); err == nil {
		return text
	}
	var object map[string]any
	if err := json.Unmarshal(errorData.Error, &object); err == nil {
		if message, ok := object["message"].(string); ok {
			return message
		}
	}
	return string(errorData.Error)
}

// parseTurnRoleToOpenAIRole keeps client-supplied roles verbatim; only a
// missing role becomes "user".
func parseTurnRoleToOpenAIRole(role model.TurnRole) string {
	switch role {
	case "":
		return OpenAIRoleUser
	case model.TurnRoleAssistant:
		return OpenAIRoleAssistant
	case model.TurnRoleSystem:
		return OpenAIRoleSystem
	default:
		return string(role)
	}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
