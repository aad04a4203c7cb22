package key_value

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/storage/file"
	"github.com/redis/go-redis/v9"
)

// HistoryStorage keeps the history document under a single redis key, in the
// same JSON layout the file backend writes.
type HistoryStorage struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewHistoryStorage(rdb *redis.Client, keyPrefix string) *HistoryStorage {
	return &HistoryStorage{
		rdb:       rdb,
		keyPrefix: keyPrefix,
	}
}

func (h *HistoryStorage) Load(ctx context.Context) ([]model.ChatExchange, error) {
	historyKey := getHistoryKey(h.keyPrefix)
	historyRaw, err := h.rdb.Get(ctx, historyKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.ChatExchange{}, nil
		}
		return nil, fmt.Errorf("failed to get history %s: %w", historyKey, err)
	}
	return file.DecodeHistory(historyRaw)
}

func (h *HistoryStorage) Save(ctx context.Context, exchanges []model.ChatExchange) error {
	historyRaw, err := file.EncodeHistory(exchanges)
	if err != nil {
		return err
	}
	historyKey := getHistoryKey(h.keyPrefix)
	if err = h.rdb.Set(ctx, historyKey, historyRaw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save history %s: %w", historyKey, err)
	}
	return nil
}

func getHistoryKey(prefix string) string {
	return fmt.Sprintf("%s:history", prefix)
}
