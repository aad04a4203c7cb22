package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	"github.com/sashabaranov/go-openai"
)

const DefaultCatalogTTL = time.Hour

// RemoteModelLister returns the raw upstream model ids in response order.
type RemoteModelLister interface {
	ListModelIDs(ctx context.Context) ([]string, error)
}

// ModelCache holds the last fetched remote catalog. Entries are replaced as a
// whole, never patched.
type ModelCache struct {
	mu        sync.RWMutex
	entries   []model.Model
	fetchedAt time.Time
}

func NewModelCache() *ModelCache {
	return &ModelCache{}
}

func (c *ModelCache) Snapshot() ([]model.Model, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]model.Model, len(c.entries))
	copy(entries, c.entries)
	return entries, c.fetchedAt
}

func (c *ModelCache) Replace(entries []model.Model, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
	c.fetchedAt = fetchedAt
}

type CatalogUsecaseDeps struct {
	Cache  *ModelCache
	Remote RemoteModelLister
}

type CatalogUsecase struct {
	CatalogUsecaseDeps
	ttl       time.Duration
	now       func() time.Time
	deepInfra map[string]model.Model
	venice    map[string]model.Model
}

func NewCatalogUsecase(deps CatalogUsecaseDeps, ttl time.Duration) *CatalogUsecase {
	if deps.Cache == nil {
		deps.Cache = NewModelCache()
	}
	deepInfra := make(map[string]model.Model, len(deepInfraModelIDs))
	for _, id := range deepInfraModelIDs {
		deepInfra[id] = model.NewDeepInfraModel(id)
	}
	venice := make(map[string]model.Model, len(veniceModelIDs))
	for _, id := range veniceModelIDs {
		venice[id] = model.NewVeniceModel(id)
	}
	return &CatalogUsecase{
		CatalogUsecaseDeps: deps,
		ttl:                ttl,
		now:                time.Now,
		deepInfra:          deepInfra,
		venice:             venice,
	}
}

// ListAllModels returns Venice models, then DeepInfra models, then the
// OpenRouter catalog in upstream order.
func (c *CatalogUsecase) ListAllModels(ctx context.Context) []model.Model {
	openRouter := c.openRouterModels(ctx)
	models := make([]model.Model, 0, len(veniceModelIDs)+len(deepInfraModelIDs)+len(openRouter))
	for _, id := range veniceModelIDs {
		models = append(models, c.venice[id])
	}
	for _, id := range deepInfraModelIDs {
		models = append(models, c.deepInfra[id])
	}
	return append(models, openRouter...)
}

// ResolveModel trusts the "openrouter/" prefix without consulting the remote
// catalog; IsModelAvailable is the strict check.
func (c *CatalogUsecase) ResolveModel(id string) (model.Model, bool) {
	if m, ok := c.deepInfra[id]; ok {
		return m, true
	}
	if m, ok := c.venice[id]; ok {
		return m, true
	}
	if strings.HasPrefix(id, model.OpenRouterPrefix) {
		return model.NewOpenRouterModel(id), true
	}
	return model.Model{}, false
}

func (c *CatalogUsecase) IsModelAvailable(ctx context.Context, id string) bool {
	if _, ok := c.deepInfra[id]; ok {
		return true
	}
	if _, ok := c.venice[id]; ok {
		return true
	}
	if !strings.HasPrefix(id, model.OpenRouterPrefix) {
		return false
	}
	for _, m := range c.openRouterModels(ctx) {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Warm fills the remote cache ahead of the first request.
func (c *CatalogUsecase) Warm(ctx context.Context) int {
	return len(c.openRouterModels(ctx))
}

// openRouterModels serves the cache while it is non-empty and younger than
// the ttl. A failed refresh keeps the previous (possibly empty) entries.
func (c *CatalogUsecase) openRouterModels(ctx context.Context) []model.Model {
	entries, fetchedAt := c.Cache.Snapshot()
	if len(entries) > 0 && c.now().Sub(fetchedAt) < c.ttl {
		return entries
	}
	if c.Remote == nil {
		return entries
	}

	ids, err := c.Remote.ListModelIDs(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to fetch openrouter models, serving cache", "error", err, "cached", len(entries))
		return entries
	}
	fresh := make([]model.Model, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		fresh = append(fresh, model.NewOpenRouterModel(model.OpenRouterPrefix+id))
	}
	c.Cache.Replace(fresh, c.now())
	return fresh
}

// OpenRouterModelLister fetches the public model listing through go-openai.
type OpenRouterModelLister struct {
	client  *openai.Client
	timeout time.Duration
}

func NewOpenRouterModelLister(cfg config.OpenRouter) *OpenRouterModelLister {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = newHTTPClient(cfg.CatalogTimeout, nil, cfg.APIKey == "")
	return &OpenRouterModelLister{
		client:  openai.NewClientWithConfig(clientConfig),
		timeout: cfg.CatalogTimeout,
	}
}

func (l *OpenRouterModelLister) ListModelIDs(ctx context.Context) ([]string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	list, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list openrouter models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
