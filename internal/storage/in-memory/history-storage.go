package in_memory

import (
	"context"
	"sync"

	"github.com/iamvkosarev/llm-relay/internal/model"
)

// HistoryStorage holds the history document in process memory.
type HistoryStorage struct {
	mu        sync.Mutex
	exchanges []model.ChatExchange
}

func NewHistoryStorage() *HistoryStorage {
	return &HistoryStorage{
		exchanges: make([]model.ChatExchange, 0),
	}
}

func (h *HistoryStorage) Load(_ context.Context) ([]model.ChatExchange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	exchanges := make([]model.ChatExchange, len(h.exchanges))
	copy(exchanges, h.exchanges)
	return exchanges, nil
}

func (h *HistoryStorage) Save(_ context.Context, exchanges []model.ChatExchange) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.exchanges = make([]model.ChatExchange, len(exchanges))
	copy(h.exchanges, exchanges)
	return nil
}
