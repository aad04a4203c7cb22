package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
)

// HistoryStorage reads and replaces the whole shared history document.
type HistoryStorage interface {
	Load(ctx context.Context) ([]model.ChatExchange, error)
	Save(ctx context.Context, exchanges []model.ChatExchange) error
}

type HistoryUsecaseDeps struct {
	HistoryStorage HistoryStorage
}

// HistoryUsecase layers per-user views over the shared document. Every
// load-modify-save cycle is serialized within the process.
type HistoryUsecase struct {
	HistoryUsecaseDeps
	mu sync.Mutex
}

func NewHistoryUsecase(deps HistoryUsecaseDeps) *HistoryUsecase {
	return &HistoryUsecase{
		HistoryUsecaseDeps: deps,
	}
}

func (h *HistoryUsecase) Append(ctx context.Context, exchange model.ChatExchange) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	exchanges := append(h.load(ctx), exchange)
	if err := h.HistoryStorage.Save(ctx, exchanges); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (h *HistoryUsecase) ListForUser(ctx context.Context, userID string) []model.ChatExchange {
	h.mu.Lock()
	defer h.mu.Unlock()

	return filterByUser(h.load(ctx), userID)
}

// DeleteAt removes the index-th exchange of the user's view. The record is
// located in the shared document by value, so of several identical records
// the first one is removed.
func (h *HistoryUsecase) DeleteAt(ctx context.Context, userID string, index int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	exchanges := h.load(ctx)
	userExchanges := filterByUser(exchanges, userID)
	if index < 0 || index >= len(userExchanges) {
		return model.ErrInvalidIndex
	}
	target := userExchanges[index]
	for i, exchange := range exchanges {
		if exchange == target {
			exchanges = append(exchanges[:i], exchanges[i+1:]...)
			break
		}
	}
	if err := h.HistoryStorage.Save(ctx, exchanges); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (h *HistoryUsecase) Clear(ctx context.Context, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	exchanges := h.load(ctx)
	kept := make([]model.ChatExchange, 0, len(exchanges))
	for _, exchange := range exchanges {
		if exchange.UserID != userID {
			kept = append(kept, exchange)
		}
	}
	if err := h.HistoryStorage.Save(ctx, kept); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// load degrades every storage failure to an empty history.
func (h *HistoryUsecase) load(ctx context.Context) []model.ChatExchange {
	exchanges, err := h.HistoryStorage.Load(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to load history, treating as empty", "error", err)
		return []model.ChatExchange{}
	}
	return exchanges
}

func filterByUser(exchanges []model.ChatExchange, userID string) []model.ChatExchange {
	userExchanges := make([]model.ChatExchange, 0)
	for _, exchange := range exchanges {
		if exchange.UserID == userID {
			userExchanges = append(userExchanges, exchange)
		}
	}
	return userExchanges
}
