package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type configAPIFake struct {
	cfg   *domain.UserConfig
	err   error
	calls int
}

func (f *configAPIFake) GetConfig(context.Context) (*domain.UserConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.cfg
	return &out, nil
}

func TestUserConfigCachedUntilCleared(t *testing.T) {
	api := &configAPIFake{cfg: &domain.UserConfig{
		Username: "alice",
		Industry: "automobile",
		Columns: map[string][]domain.ColumnDef{
			"verify_dates": {{DBColumn: "car_number", Label: "Vehicle No"}},
		},
	}}
	store := newSessionStoreFake()
	uc := NewUserConfigUseCase(api, store)

	for i := 0; i < 3; i++ {
		if _, err := uc.Get(context.Background()); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if api.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", api.calls)
	}
	if !store.has(domain.SessionKeyUserConfig) {
		t.Fatalf("expected config persisted")
	}

	row := uc.Mapping().ToDisplay(map[string]any{"car_number": "KA-01", "receipt_number": "R1"})
	if row["Vehicle No"] != "KA-01" || row["Receipt Number"] != "R1" {
		t.Fatalf("unexpected display row %v", row)
	}

	uc.Clear(context.Background())
	if store.has(domain.SessionKeyUserConfig) {
		t.Fatalf("expected persisted config removed")
	}
	if _, err := uc.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if api.calls != 2 {
		t.Fatalf("expected refetch after clear, got %d", api.calls)
	}
}

func TestUserConfigFallsBackToPersistedCopy(t *testing.T) {
	store := newSessionStoreFake()
	_ = store.Set(context.Background(), domain.SessionKeyUserConfig, `{"username":"bob","industry":"medical"}`)
	uc := NewUserConfigUseCase(&configAPIFake{err: errors.New("offline")}, store)

	cfg, err := uc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cfg.Username != "bob" || cfg.Industry != "medical" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestUserConfigFetchErrorWithoutCopy(t *testing.T) {
	uc := NewUserConfigUseCase(&configAPIFake{err: errors.New("offline")}, newSessionStoreFake())
	if _, err := uc.Get(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
