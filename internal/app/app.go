package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	"github.com/iamvkosarev/llm-relay/internal/server"
	"github.com/iamvkosarev/llm-relay/internal/storage/file"
	in_memory "github.com/iamvkosarev/llm-relay/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/llm-relay/internal/storage/key-value"
	"github.com/iamvkosarev/llm-relay/internal/usecase"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
)

const shutdownTimeout = 10 * time.Second

type storages struct {
	history usecase.HistoryStorage
	session usecase.SessionStorage
	close   func() error
}

// Run serves the API until ctx is cancelled, then shuts the server down
// gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := observability.Logger()

	stores, err := newStorages(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()

	historyUsecase := usecase.NewHistoryUsecase(
		usecase.HistoryUsecaseDeps{
			HistoryStorage: stores.history,
		},
	)

	authUsecase := usecase.NewAuthUsecase(
		usecase.AuthUsecaseDeps{
			SessionStorage: stores.session,
		}, cfg.HTTP.SessionTTL,
	)

	catalogUsecase := usecase.NewCatalogUsecase(
		usecase.CatalogUsecaseDeps{
			Cache:  usecase.NewModelCache(),
			Remote: usecase.NewOpenRouterModelLister(cfg.OpenRouter),
		}, cfg.OpenRouter.CatalogTTL,
	)

	openRouterUsecase := usecase.NewOpenRouterUsecase(cfg.OpenRouter)
	logger.Info("openrouter adapter configured", "privileged", openRouterUsecase.Privileged())

	chatUsecase := usecase.NewChatUsecase(
		usecase.ChatUsecaseDeps{
			Catalog: catalogUsecase,
			History: historyUsecase,
			Providers: map[model.Provider]usecase.ChatProvider{
				model.ProviderDeepInfra:  usecase.NewDeepInfraUsecase(cfg.DeepInfra),
				model.ProviderVenice:     usecase.NewVeniceUsecase(cfg.Venice),
				model.ProviderOpenRouter: openRouterUsecase,
			},
		},
	)

	httpServer := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: server.NewServer(
			cfg.HTTP, server.ServerDeps{
				Auth:    authUsecase,
				Catalog: catalogUsecase,
				Chat:    chatUsecase,
				History: historyUsecase,
			},
		),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	var serveErr error
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	wg := conc.NewWaitGroup()
	wg.Go(
		func() {
			defer stop()
			logger.Info("listening", "address", cfg.HTTP.Address)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr = fmt.Errorf("failed to serve http: %w", err)
			}
		},
	)
	wg.Go(
		func() {
			count := catalogUsecase.Warm(serveCtx)
			logger.Info("model catalog warmed", "openrouter_models", count)
		},
	)
	wg.Go(
		func() {
			<-serveCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown http server", "error", err)
			}
			logger.Info("http server stopped")
		},
	)
	wg.Wait()

	return serveErr
}

func newStorages(ctx context.Context, cfg config.Storage) (storages, error) {
	switch cfg.Backend {
	case config.StorageBackendRedis:
		rdb := redis.NewClient(
			&redis.Options{
				Addr:     cfg.Redis.Endpoint,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			},
		)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return storages{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return storages{
			history: key_value.NewHistoryStorage(rdb, cfg.Redis.KeyPrefix),
			session: key_value.NewSessionStorage(rdb, cfg.Redis.KeyPrefix),
			close:   rdb.Close,
		}, nil
	case config.StorageBackendMemory:
		return storages{
			history: in_memory.NewHistoryStorage(),
			session: in_memory.NewSessionStorage(),
			close:   func() error { return nil },
		}, nil
	case config.StorageBackendFile, "":
		return storages{
			history: file.NewHistoryStorage(cfg.HistoryFile),
			session: in_memory.NewSessionStorage(),
			close:   func() error { return nil },
		}, nil
	default:
		return storages{}, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
