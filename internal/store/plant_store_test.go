package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/plantpal/internal/db"
	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/live"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newPlant(name string, order int, lastWatered int64) *domain.Plant {
	return &domain.Plant{
		Name:                  name,
		Species:               name + " species",
		WateringFrequencyDays: 7,
		LastWatered:           lastWatered,
		DisplayOrder:          order,
	}
}

func names(plants []*domain.Plant) []string {
	out := make([]string, len(plants))
	for i, p := range plants {
		out[i] = p.Name
	}
	return out
}

func TestPlantStoreCreateAndGet(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	p := newPlant("Monstera", 0, 1_700_000_000_000)
	p.Instructions = domain.StringPtr("Bright indirect light")

	id, err := store.Create(ctx, p)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Monstera", got.Name)
	assert.Equal(t, int64(1_700_000_000_000), got.LastWatered)
	assert.Nil(t, got.PhotoURI)
	require.NotNil(t, got.Instructions)
	assert.Equal(t, "Bright indirect light", *got.Instructions)
}

func TestPlantStoreGetByIDNotFound(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)

	got, err := store.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPlantStoreListOrdering(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	for _, p := range []*domain.Plant{
		newPlant("Zamioculcas", 1, 100),
		newPlant("Basil", 1, 300),
		newPlant("Fern", 1, 200),
		newPlant("Cactus", 0, 500),
	} {
		_, err := store.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cactus", "Basil", "Fern", "Zamioculcas"}, names(all))

	watering, err := store.ListForWatering(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cactus", "Zamioculcas", "Fern", "Basil"}, names(watering))
}

func TestPlantStoreListEmpty(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)

	plants, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plants)
	assert.Empty(t, plants)
}

func TestPlantStoreIDsNotReused(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	first, err := store.Create(ctx, newPlant("A", 0, 0))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, first))

	second, err := store.Create(ctx, newPlant("B", 0, 0))
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestPlantStoreCreateManyReplaces(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	a := newPlant("A", 0, 0)
	a.ID = 1
	ids, err := store.CreateMany(ctx, []*domain.Plant{a, newPlant("B", 1, 0)})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(1), ids[0])

	replacement := newPlant("A2", 0, 0)
	replacement.ID = 1
	_, err = store.CreateMany(ctx, []*domain.Plant{replacement})
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "B"}, names(all))
}

func TestPlantStoreUpdate(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	id, err := store.Create(ctx, newPlant("Fern", 0, 0))
	require.NoError(t, err)

	p, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	p.Name = "Boston Fern"
	p.WateringFrequencyDays = 2
	p.PhotoURI = domain.StringPtr("file:///data/photos/plant/x.jpg")
	require.NoError(t, store.Update(ctx, p))

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Boston Fern", got.Name)
	assert.Equal(t, 2, got.WateringFrequencyDays)
	require.NotNil(t, got.PhotoURI)
	assert.Equal(t, "file:///data/photos/plant/x.jpg", *got.PhotoURI)
}

func TestPlantStoreUpdateMissingIsNoop(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	p := newPlant("Ghost", 0, 0)
	p.ID = 42
	require.NoError(t, store.Update(context.Background(), p))
}

func TestPlantStoreUpdateMany(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	idA, err := store.Create(ctx, newPlant("A", 0, 0))
	require.NoError(t, err)
	idB, err := store.Create(ctx, newPlant("B", 1, 0))
	require.NoError(t, err)

	a, _ := store.GetByID(ctx, idA)
	b, _ := store.GetByID(ctx, idB)
	a.DisplayOrder, b.DisplayOrder = b.DisplayOrder, a.DisplayOrder
	require.NoError(t, store.UpdateMany(ctx, []*domain.Plant{a, b}))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(all))
}

func TestPlantStoreUpdateLastWatered(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	id, err := store.Create(ctx, newPlant("Fern", 0, 0))
	require.NoError(t, err)

	ok, err := store.UpdateLastWatered(ctx, id, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := store.GetByID(ctx, id)
	assert.Equal(t, int64(12345), got.LastWatered)

	ok, err = store.UpdateLastWatered(ctx, 9999, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlantStoreDelete(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	id, err := store.Create(ctx, newPlant("Fern", 0, 0))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, id))
}

func TestPlantStoreDeleteAll(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	_, err := store.CreateMany(ctx, []*domain.Plant{newPlant("A", 0, 0), newPlant("B", 1, 0)})
	require.NoError(t, err)
	require.NoError(t, store.DeleteAll(ctx))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPlantStoreMaxDisplayOrder(t *testing.T) {
	store := NewPlantStore(openTestDB(t), nil)
	ctx := context.Background()

	_, ok, err := store.MaxDisplayOrder(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.CreateMany(ctx, []*domain.Plant{newPlant("A", 3, 0), newPlant("B", 7, 0)})
	require.NoError(t, err)

	maxOrder, ok, err := store.MaxDisplayOrder(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, maxOrder)
}

func TestPlantStorePublishesWrites(t *testing.T) {
	broker := live.NewBroker()
	store := NewPlantStore(openTestDB(t), broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, unsubscribe := broker.Subscribe(ctx, live.TablePlants)
	defer unsubscribe()

	id, err := store.Create(context.Background(), newPlant("Fern", 0, 0))
	require.NoError(t, err)

	select {
	case c := <-changes:
		assert.True(t, c.Touches(id))
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}
}
