package store

import (
	"context"
	"log/slog"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/live"
)

// WatchAll streams List snapshots: one immediately and one after each write.
func (s *PlantStore) WatchAll(ctx context.Context) <-chan []*domain.Plant {
	return live.Watch(ctx, s.changes, live.TablePlants, nil, s.List, slog.Default())
}

// WatchForWatering streams ListForWatering snapshots.
func (s *PlantStore) WatchForWatering(ctx context.Context) <-chan []*domain.Plant {
	return live.Watch(ctx, s.changes, live.TablePlants, nil, s.ListForWatering, slog.Default())
}

// WatchByID streams the plant with id. A nil value means it does not exist
// (or no longer exists).
func (s *PlantStore) WatchByID(ctx context.Context, id int64) <-chan *domain.Plant {
	return live.Watch(ctx, s.changes, live.TablePlants,
		func(c live.Change) bool { return c.Touches(id) },
		func(ctx context.Context) (*domain.Plant, error) { return s.GetByID(ctx, id) },
		slog.Default(),
	)
}
