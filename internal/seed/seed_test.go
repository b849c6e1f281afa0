package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/plantpal/internal/db"
	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/service"
	"github.com/vbonduro/plantpal/internal/store"
)

var seedNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) *service.PlantService {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return service.NewPlantService(store.NewPlantStore(d, nil), nil, nil, nil, nil, logging.Discard())
}

func TestParseSamplePlants(t *testing.T) {
	plants, err := Parse(samplePlants, seedNow)
	require.NoError(t, err)
	require.Len(t, plants, 2)

	monstera := plants[0]
	assert.Zero(t, monstera.ID)
	assert.Equal(t, "Monstera", monstera.Name)
	assert.Equal(t, "Monstera deliciosa", monstera.Species)
	assert.Equal(t, 3, monstera.WateringFrequencyDays)
	assert.Equal(t, int64(2), domain.DaysSince(seedNow.UnixMilli(), monstera))

	cactus := plants[1]
	assert.Equal(t, "Cactus", cactus.Name)
	assert.Equal(t, "Echinocactus grusonii", cactus.Species)
	assert.Equal(t, 14, cactus.WateringFrequencyDays)
	assert.Equal(t, int64(10), domain.DaysSince(seedNow.UnixMilli(), cactus))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("plants: [unterminated"), seedNow)
	assert.Error(t, err)
}

func TestSeedInsertsOnce(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	inserted, err := Seed(ctx, svc, seedNow)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = Seed(ctx, svc, seedNow)
	require.NoError(t, err)
	assert.False(t, inserted)

	plants, err := svc.ListPlants(ctx)
	require.NoError(t, err)
	assert.Len(t, plants, 2)
}

func TestSeedSkipsNonEmptyDatabase(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.AddPlant(ctx, &domain.Plant{Name: "Mine", Species: "x", WateringFrequencyDays: 5})
	require.NoError(t, err)

	inserted, err := Seed(ctx, svc, seedNow)
	require.NoError(t, err)
	assert.False(t, inserted)

	plants, err := svc.ListPlants(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, "Mine", plants[0].Name)
}

func TestSeedNeverReplacesExistingRows(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.AddPlant(ctx, &domain.Plant{Name: "UserA", Species: "a", WateringFrequencyDays: 5})
	require.NoError(t, err)
	second, err := svc.AddPlant(ctx, &domain.Plant{Name: "UserB", Species: "b", WateringFrequencyDays: 5})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePlant(ctx, first))

	inserted, err := Seed(ctx, svc, seedNow)
	require.NoError(t, err)
	assert.False(t, inserted)

	p, err := svc.GetPlant(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "UserB", p.Name)
	assert.Equal(t, "b", p.Species)
}

func TestSeedAssignsFreshIDs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.AddPlant(ctx, &domain.Plant{Name: "Gone", Species: "x", WateringFrequencyDays: 5})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePlant(ctx, id))

	inserted, err := Seed(ctx, svc, seedNow)
	require.NoError(t, err)
	require.True(t, inserted)

	plants, err := svc.ListPlants(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 2)
	for _, p := range plants {
		assert.Greater(t, p.ID, id, "sample plant %s reused a deleted id", p.Name)
	}
}
