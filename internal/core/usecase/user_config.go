package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// UserConfigUseCase caches the per-user column configuration in memory and in the session store.
type UserConfigUseCase struct {
	api   ports.ConfigAPI
	store ports.SessionStore

	mu      sync.Mutex
	cached  *domain.UserConfig
	mapping *domain.ColumnMapping
}

func NewUserConfigUseCase(api ports.ConfigAPI, store ports.SessionStore) *UserConfigUseCase {
	return &UserConfigUseCase{
		api:     api,
		store:   store,
		mapping: domain.NewColumnMapping(),
	}
}

// Get returns the cached config, fetching it once per session. When the fetch
// fails the copy persisted in the session store is used.
func (uc *UserConfigUseCase) Get(ctx context.Context) (*domain.UserConfig, error) {
	uc.mu.Lock()
	cached := uc.cached
	uc.mu.Unlock()
	if cached != nil {
		out := *cached
		return &out, nil
	}
	return uc.Refresh(ctx)
}

func (uc *UserConfigUseCase) Refresh(ctx context.Context) (*domain.UserConfig, error) {
	cfg, err := uc.api.GetConfig(ctx)
	if err != nil {
		persisted, ok := uc.loadPersisted(ctx)
		if !ok {
			return nil, fmt.Errorf("get user config: %w", err)
		}
		slog.Warn("user_config_fetch_failed", "error", err, "fallback", "session_store")
		cfg = persisted
	} else {
		uc.persist(ctx, cfg)
	}

	uc.mu.Lock()
	uc.cached = cfg
	uc.mapping.Add(cfg.ColumnLabels())
	uc.mu.Unlock()

	out := *cfg
	return &out, nil
}

// Mapping translates review record columns using defaults plus labels from the loaded config.
func (uc *UserConfigUseCase) Mapping() *domain.ColumnMapping {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.mapping
}

func (uc *UserConfigUseCase) Clear(ctx context.Context) {
	uc.mu.Lock()
	uc.cached = nil
	uc.mapping = domain.NewColumnMapping()
	uc.mu.Unlock()

	if err := uc.store.Delete(ctx, domain.SessionKeyUserConfig); err != nil {
		slog.Warn("user_config_clear_failed", "error", err)
	}
}

func (uc *UserConfigUseCase) persist(ctx context.Context, cfg *domain.UserConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		slog.Warn("user_config_persist_failed", "error", err)
		return
	}
	if err := uc.store.Set(ctx, domain.SessionKeyUserConfig, string(raw)); err != nil {
		slog.Warn("user_config_persist_failed", "error", err)
	}
}

func (uc *UserConfigUseCase) loadPersisted(ctx context.Context) (*domain.UserConfig, bool) {
	raw, ok, err := uc.store.Get(ctx, domain.SessionKeyUserConfig)
	if err != nil || !ok || raw == "" {
		return nil, false
	}
	var cfg domain.UserConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		slog.Warn("user_config_decode_failed", "error", err)
		return nil, false
	}
	return &cfg, true
}
