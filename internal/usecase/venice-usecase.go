package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
)

const (
	veniceServerName = "Venice"
	veniceModelID    = "dolphin-3.0-mistral-24b"
	veniceModelName  = "Venice Uncensored"
)

var veniceHeaders = map[string]string{
	"authority":          "outerface.venice.ai",
	"accept":             "*/*",
	"accept-language":    "en-US,en;q=0.9",
	"content-type":       "application/json",
	"origin":             "https://venice.ai",
	"referer":            "https://venice.ai/",
	"sec-ch-ua":          `"Chromium";v="137", "Not/A)Brand";v="24"`,
	"sec-ch-ua-mobile":   "?1",
	"sec-ch-ua-platform": `"Android"`,
	"sec-fetch-dest":     "empty",
	"sec-fetch-mode":     "cors",
	"sec-fetch-site":     "same-site",
	"user-agent":         "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Mobile Safari/537.36",
	"x-venice-version":   "interface@20250626.212124+945291c",
}

type venicePrompt struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type veniceTextToSpeech struct {
	VoiceID string `json:"voiceId"`
	Speed   int    `json:"speed"`
}

type veniceRequest struct {
	RequestID                 string             `json:"requestId"`
	ConversationType          string             `json:"conversationType"`
	Type                      string             `json:"type"`
	ModelID                   string             `json:"modelId"`
	ModelName                 string             `json:"modelName"`
	ModelType                 string             `json:"modelType"`
	Prompt                    []venicePrompt     `json:"prompt"`
	SystemPrompt              string             `json:"systemPrompt"`
	MessageID                 string             `json:"messageId"`
	IncludeVeniceSystemPrompt bool               `json:"includeVeniceSystemPrompt"`
	IsCharacter               bool               `json:"isCharacter"`
	UserID                    string             `json:"userId"`
	SimpleMode                bool               `json:"simpleMode"`
	CharacterID               string             `json:"characterId"`
	ID                        string             `json:"id"`
	TextToSpeech              veniceTextToSpeech `json:"textToSpeech"`
	WebEnabled                bool               `json:"webEnabled"`
	Reasoning                 bool               `json:"reasoning"`
	Temperature               float64            `json:"temperature"`
	TopP                      float64            `json:"topP"`
	ClientProcessingTime      int                `json:"clientProcessingTime"`
}

type veniceChunk struct {
	Content string `json:"content"`
}

// VeniceUsecase calls a single-shot inference endpoint that answers with
// newline-delimited JSON fragments.
type VeniceUsecase struct {
	cfg        config.Venice
	httpClient *http.Client
	now        func() time.Time
}

func NewVeniceUsecase(cfg config.Venice) *VeniceUsecase {
	return &VeniceUsecase{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.Timeout, veniceHeaders, false),
		now:        time.Now,
	}
}

// Invoke ignores modelID and history: the upstream serves one fixed model and
// takes a single prompt turn.
func (v *VeniceUsecase) Invoke(ctx context.Context, modelID, msg string, _ []model.Turn) (string, error) {
	logger := observability.WithFields(ctx, "provider", model.ProviderVenice, "model", modelID)

	payload, err := json.Marshal(v.buildRequest(msg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal venice request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create venice request: %w", err)
	}

	start := time.Now()
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", v.requestFailed(logger, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", v.requestFailed(logger, err)
	}

	if resp.StatusCode == http.StatusOK {
		if fullText := joinVeniceChunks(body); fullText != "" {
			logger.Info("venice reply received", "chars", len(fullText), "elapsed", time.Since(start))
			return fullText, nil
		}
	}
	logger.Error("venice api error", "status", resp.StatusCode, "response", truncate(string(body), 500))
	return "", protocolError(model.ProviderVenice, fmt.Sprintf("API error: %d", resp.StatusCode), nil)
}

func (v *VeniceUsecase) requestFailed(logger *slog.Logger, err error) error {
	if providerErr := classifyTransportError(model.ProviderVenice, veniceServerName, err); providerErr != nil {
		logger.Error("venice request failed", "kind", providerErr.Kind, "error", err)
		return providerErr
	}
	return protocolError(model.ProviderVenice, err.Error(), err)
}

func (v *VeniceUsecase) buildRequest(msg string) veniceRequest {
	unix := v.now().Unix()
	return veniceRequest{
		RequestID:                 fmt.Sprintf("req%d", unix),
		ConversationType:          "text",
		Type:                      "text",
		ModelID:                   veniceModelID,
		ModelName:                 veniceModelName,
		ModelType:                 "text",
		Prompt:                    []venicePrompt{{Role: OpenAIRoleUser, Content: msg}},
		SystemPrompt:              "",
		MessageID:                 fmt.Sprintf("msg%d", unix),
		IncludeVeniceSystemPrompt: true,
		IsCharacter:               false,
		UserID:                    fmt.Sprintf("user_anon_%d", unix),
		SimpleMode:                false,
		CharacterID:               "",
		ID:                        "",
		TextToSpeech: veniceTextToSpeech{
			VoiceID: "af_sky",
			Speed:   1,
		},
		WebEnabled:           true,
		Reasoning:            true,
		Temperature:          0.3,
		TopP:                 1,
		ClientProcessingTime: 11,
	}
}

// joinVeniceChunks concatenates the content of every parsable line. Lines that
// are not JSON objects are skipped.
func joinVeniceChunks(body []byte) string {
	var fullText strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var chunk veniceChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		fullText.WriteString(chunk.Content)
	}
	return fullText.String()
}
