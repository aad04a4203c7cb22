package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
)

// TimestampLayout matches the ISO-8601 local time written into history.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ChatProvider is one upstream adapter.
type ChatProvider interface {
	Invoke(ctx context.Context, modelID, msg string, history []model.Turn) (string, error)
}

type ModelResolver interface {
	ResolveModel(id string) (model.Model, bool)
}

type ChatRequest struct {
	UserID  string
	Message string
	Model   string
	History []model.Turn
}

type ChatResult struct {
	Model     string
	Message   string
	Response  string
	Timestamp string
}

type ChatUsecaseDeps struct {
	Catalog   ModelResolver
	History   *HistoryUsecase
	Providers map[model.Provider]ChatProvider
}

type ChatUsecase struct {
	ChatUsecaseDeps
	now func() time.Time
}

func NewChatUsecase(deps ChatUsecaseDeps) *ChatUsecase {
	return &ChatUsecase{
		ChatUsecaseDeps: deps,
		now:             time.Now,
	}
}

// Chat validates req, dispatches it to the model's provider and records the
// exchange. Upstream calls are detached from ctx cancellation: once issued
// they end only by reply, timeout or continuation budget.
func (c *ChatUsecase) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	if req.UserID == "" {
		return ChatResult{}, model.ErrAuthRequired
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatResult{}, model.ErrMessageRequired
	}
	if req.Model == "" {
		return ChatResult{}, model.ErrModelRequired
	}
	aiModel, ok := c.Catalog.ResolveModel(req.Model)
	if !ok {
		return ChatResult{}, model.ErrUnknownModel
	}
	provider, ok := c.Providers[aiModel.Provider]
	if !ok {
		return ChatResult{}, model.ErrUnknownModel
	}

	ctx = context.WithoutCancel(ctx)
	logger := observability.WithFields(ctx, "user_id", req.UserID, "model", req.Model)
	logger.Info("processing chat request", "provider", aiModel.Provider)

	reply, err := provider.Invoke(ctx, req.Model, msg, req.History)
	if err != nil {
		return ChatResult{}, fmt.Errorf("failed to invoke %s: %w", aiModel.Provider, err)
	}
	logger.Info("response generated", "chars", len(reply))

	timestamp := c.now().Format(TimestampLayout)
	exchange := model.ChatExchange{
		UserID:    req.UserID,
		Timestamp: timestamp,
		Model:     req.Model,
		Message:   msg,
		Response:  reply,
		Provider:  aiModel.Provider,
	}
	if err = c.History.Append(ctx, exchange); err != nil {
		return ChatResult{}, fmt.Errorf("failed to record exchange: %w", err)
	}

	return ChatResult{
		Model:     req.Model,
		Message:   msg,
		Response:  reply,
		Timestamp: timestamp,
	}, nil
}
