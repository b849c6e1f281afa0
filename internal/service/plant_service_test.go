package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/plantpal/internal/db"
	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/photostore"
	"github.com/vbonduro/plantpal/internal/photostore/local"
	"github.com/vbonduro/plantpal/internal/store"
	"github.com/vbonduro/plantpal/internal/vision"
)

// stubVision is a minimal Identifier for tests.
type stubVision struct {
	result *vision.Identification
	err    error
}

func (s *stubVision) Identify(_ context.Context, _ io.Reader, _ string) (*vision.Identification, error) {
	return s.result, s.err
}

type countingTrigger struct {
	calls atomic.Int32
}

func (c *countingTrigger) TriggerNow() { c.calls.Add(1) }

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *PlantService
	store   *store.PlantStore
	photos  *local.LocalPhotoStore
	dir     string
	clock   *clockwork.FakeClock
	trigger *countingTrigger
}

func newTestEnv(t *testing.T, identifier vision.Identifier) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dir := t.TempDir()
	photos, err := local.NewLocalPhotoStore(filepath.Join(dir, "photos"))
	require.NoError(t, err)

	env := &testEnv{
		store:   store.NewPlantStore(d, nil),
		photos:  photos,
		dir:     dir,
		clock:   clockwork.NewFakeClockAt(testNow),
		trigger: &countingTrigger{},
	}
	env.svc = NewPlantService(env.store, photos, identifier, env.trigger, env.clock, logging.Discard())
	return env
}

func wateredDaysAgo(name string, freq, daysAgo int) *domain.Plant {
	return &domain.Plant{
		Name:                  name,
		Species:               name + " sp.",
		WateringFrequencyDays: freq,
		LastWatered:           testNow.UnixMilli() - int64(daysAgo)*domain.DayMillis,
	}
}

func plantNames(plants []*domain.Plant) []string {
	out := make([]string, len(plants))
	for i, p := range plants {
		out[i] = p.Name
	}
	return out
}

func TestAddPlantAssignsNextDisplayOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	firstID, err := env.svc.AddPlant(ctx, wateredDaysAgo("Aloe", 7, 0))
	require.NoError(t, err)
	first, _ := env.svc.GetPlant(ctx, firstID)
	assert.Equal(t, 0, first.DisplayOrder)

	require.NoError(t, env.svc.InsertPlants(ctx, []*domain.Plant{
		{Name: "A", Species: "a", WateringFrequencyDays: 1, DisplayOrder: 0},
		{Name: "B", Species: "b", WateringFrequencyDays: 1, DisplayOrder: 4},
	}))

	id, err := env.svc.AddPlant(ctx, wateredDaysAgo("C", 7, 0))
	require.NoError(t, err)
	c, err := env.svc.GetPlant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, c.DisplayOrder)
	assert.Equal(t, int32(3), env.trigger.calls.Load())
}

func TestWaterPlantClearsNeedsWater(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	id, err := env.svc.AddPlant(ctx, wateredDaysAgo("Fern", 3, 3))
	require.NoError(t, err)

	thirsty, err := env.svc.PlantsNeedingWater(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fern"}, plantNames(thirsty))

	require.NoError(t, env.svc.WaterPlant(ctx, id))

	p, err := env.svc.GetPlant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), p.LastWatered)

	thirsty, err = env.svc.PlantsNeedingWater(ctx)
	require.NoError(t, err)
	assert.Empty(t, thirsty)
}

func TestWaterPlantMissingIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.svc.WaterPlant(context.Background(), 404))
	assert.Zero(t, env.trigger.calls.Load())
}

func TestPlantsNeedingWaterFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	watered := wateredDaysAgo("Watered", 3, 0)
	thirstyOld := wateredDaysAgo("Old", 3, 10)
	thirstyRecent := wateredDaysAgo("Recent", 3, 4)
	for _, p := range []*domain.Plant{watered, thirstyRecent, thirstyOld} {
		p.DisplayOrder = 0
	}
	require.NoError(t, env.svc.InsertPlants(ctx, []*domain.Plant{watered, thirstyRecent, thirstyOld}))

	thirsty, err := env.svc.PlantsNeedingWater(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Old", "Recent"}, plantNames(thirsty))
}

func TestWatchPlantsNeedingWater(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := env.svc.AddPlant(context.Background(), wateredDaysAgo("Fern", 1, 2))
	require.NoError(t, err)

	stream := env.svc.WatchPlantsNeedingWater(ctx)
	assert.Equal(t, []string{"Fern"}, plantNames(receive(t, stream)))

	require.NoError(t, env.svc.WaterPlant(context.Background(), id))
	assert.Empty(t, receive(t, stream))
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok)
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestUpdateWateringSchedule(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	id, err := env.svc.AddPlant(ctx, wateredDaysAgo("Fern", 3, 0))
	require.NoError(t, err)

	require.NoError(t, env.svc.UpdateWateringSchedule(ctx, id, 10))
	p, _ := env.svc.GetPlant(ctx, id)
	assert.Equal(t, 10, p.WateringFrequencyDays)

	require.NoError(t, env.svc.UpdateWateringSchedule(ctx, 999, 10))
}

func TestMovePlantSwapsIndices(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := env.svc.AddPlant(ctx, wateredDaysAgo(name, 7, 0))
		require.NoError(t, err)
	}

	visible, err := env.svc.ListPlants(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, plantNames(visible))

	require.NoError(t, env.svc.MovePlantUp(ctx, visible[2].ID, visible))
	visible, err = env.svc.ListPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, plantNames(visible))

	require.NoError(t, env.svc.MovePlantDown(ctx, visible[0].ID, visible))
	visible, err = env.svc.ListPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, plantNames(visible))
	assert.Equal(t, []int{0, 1, 2}, []int{visible[0].DisplayOrder, visible[1].DisplayOrder, visible[2].DisplayOrder})
}

func displayOrders(plants []*domain.Plant) map[string]int {
	out := make(map[string]int, len(plants))
	for _, p := range plants {
		out[p.Name] = p.DisplayOrder
	}
	return out
}

func TestMoveMiddlePlantUpThenDownRestoresOrder(t *testing.T) {
	tests := []struct {
		name      string
		orders    []int
		afterUp   map[string]int
		afterDown map[string]int
	}{
		{
			name:      "dense orders",
			orders:    []int{0, 1, 2},
			afterUp:   map[string]int{"A": 1, "B": 0, "C": 2},
			afterDown: map[string]int{"A": 0, "B": 1, "C": 2},
		},
		{
			name:      "sparse orders",
			orders:    []int{10, 20, 30},
			afterUp:   map[string]int{"A": 1, "B": 0, "C": 30},
			afterDown: map[string]int{"A": 0, "B": 1, "C": 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			ctx := context.Background()

			var plants []*domain.Plant
			for i, name := range []string{"A", "B", "C"} {
				plants = append(plants, &domain.Plant{Name: name, Species: name, WateringFrequencyDays: 7, DisplayOrder: tt.orders[i]})
			}
			require.NoError(t, env.svc.InsertPlants(ctx, plants))

			visible, err := env.svc.ListPlants(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"A", "B", "C"}, plantNames(visible))
			middle := visible[1].ID

			require.NoError(t, env.svc.MovePlantUp(ctx, middle, visible))
			visible, err = env.svc.ListPlants(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"B", "A", "C"}, plantNames(visible))
			assert.Equal(t, tt.afterUp, displayOrders(visible))

			require.NoError(t, env.svc.MovePlantDown(ctx, middle, visible))
			visible, err = env.svc.ListPlants(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B", "C"}, plantNames(visible))
			assert.Equal(t, tt.afterDown, displayOrders(visible))
		})
	}
}

func TestMovePlantEdgesAreNoops(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		_, err := env.svc.AddPlant(ctx, wateredDaysAgo(name, 7, 0))
		require.NoError(t, err)
	}
	visible, err := env.svc.ListPlants(ctx)
	require.NoError(t, err)
	before := env.trigger.calls.Load()

	require.NoError(t, env.svc.MovePlantUp(ctx, visible[0].ID, visible))
	require.NoError(t, env.svc.MovePlantDown(ctx, visible[1].ID, visible))
	require.NoError(t, env.svc.MovePlantUp(ctx, 12345, visible))

	after, err := env.svc.ListPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, plantNames(after))
	assert.Equal(t, before, env.trigger.calls.Load())
}

func TestMovePlantUsesVisibleIndex(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// Display orders 10 and 20: the swap writes list indices, not the old orders.
	require.NoError(t, env.svc.InsertPlants(ctx, []*domain.Plant{
		{Name: "A", Species: "a", WateringFrequencyDays: 1, DisplayOrder: 10},
		{Name: "B", Species: "b", WateringFrequencyDays: 1, DisplayOrder: 20},
	}))
	visible, err := env.svc.ListPlants(ctx)
	require.NoError(t, err)

	require.NoError(t, env.svc.MovePlantDown(ctx, visible[0].ID, visible))

	a, _ := env.svc.GetPlant(ctx, visible[0].ID)
	b, _ := env.svc.GetPlant(ctx, visible[1].ID)
	assert.Equal(t, 1, a.DisplayOrder)
	assert.Equal(t, 0, b.DisplayOrder)
}

func TestDeletePlantRemovesManagedPhoto(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	uri, err := env.svc.SavePhoto(ctx, []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	key, err := env.photos.KeyFromURI(uri)
	require.NoError(t, err)

	p := wateredDaysAgo("Fern", 3, 0)
	p.PhotoURI = &uri
	id, err := env.svc.AddPlant(ctx, p)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeletePlant(ctx, id))

	_, _, err = env.photos.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
	got, err := env.svc.GetPlant(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeletePlantLeavesForeignPhoto(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	outside := filepath.Join(env.dir, "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	p := wateredDaysAgo("Fern", 3, 0)
	p.PhotoURI = domain.StringPtr("file://" + filepath.ToSlash(outside))
	id, err := env.svc.AddPlant(ctx, p)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeletePlant(ctx, id))

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestDeletePlantMissingPhotoFileStillDeletes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	p := wateredDaysAgo("Fern", 3, 0)
	p.PhotoURI = domain.StringPtr(env.photos.URI("plant_gone.jpg"))
	id, err := env.svc.AddPlant(ctx, p)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeletePlant(ctx, id))
	got, _ := env.svc.GetPlant(ctx, id)
	assert.Nil(t, got)
}

type recordingDismisser struct {
	dismissed []int64
	all       int
}

func (r *recordingDismisser) Dismiss(_ context.Context, id int64) error {
	r.dismissed = append(r.dismissed, id)
	return nil
}

func (r *recordingDismisser) DismissAll(context.Context) error {
	r.all++
	return nil
}

func TestDeletePlantClearsReminder(t *testing.T) {
	env := newTestEnv(t, nil)
	inbox := &recordingDismisser{}
	env.svc.SetInbox(inbox)
	ctx := context.Background()

	id, err := env.svc.AddPlant(ctx, wateredDaysAgo("Fern", 1, 3))
	require.NoError(t, err)
	require.NoError(t, env.svc.DeletePlant(ctx, id))
	assert.Equal(t, []int64{id}, inbox.dismissed)

	require.NoError(t, env.svc.DeletePlant(ctx, 999))
	assert.Equal(t, []int64{id}, inbox.dismissed, "missing plants have no reminder to clear")

	require.NoError(t, env.svc.DeleteAllPlants(ctx))
	assert.Equal(t, 1, inbox.all)
}

func TestDeletePlantMissingIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.svc.DeletePlant(context.Background(), 77))
	assert.Zero(t, env.trigger.calls.Load())
}

func TestDeleteAllPlants(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.AddPlant(ctx, wateredDaysAgo("A", 1, 0))
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteAllPlants(ctx))

	plants, err := env.svc.ListPlants(ctx)
	require.NoError(t, err)
	assert.Empty(t, plants)
}

func TestPlantPhoto(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	uri, err := env.svc.SavePhoto(ctx, []byte("png bytes"), "image/png")
	require.NoError(t, err)
	p := wateredDaysAgo("Fern", 3, 0)
	p.PhotoURI = &uri
	id, err := env.svc.AddPlant(ctx, p)
	require.NoError(t, err)

	rc, mime, err := env.svc.PlantPhoto(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("png bytes"), data)

	noPhoto, err := env.svc.AddPlant(ctx, wateredDaysAgo("Bare", 3, 0))
	require.NoError(t, err)
	_, _, err = env.svc.PlantPhoto(ctx, noPhoto)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
}

func TestIdentifyPlant(t *testing.T) {
	want := &vision.Identification{Name: "Monstera", Species: "Monstera deliciosa", WateringFrequencyDays: 7}
	env := newTestEnv(t, &stubVision{result: want})

	got, err := env.svc.IdentifyPlant(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIdentifyPlantErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.IdentifyPlant(context.Background(), []byte{0xFF}, "image/jpeg")
	assert.ErrorIs(t, err, ErrVisionDisabled)

	env = newTestEnv(t, &stubVision{err: errors.New("model offline")})
	_, err = env.svc.IdentifyPlant(context.Background(), bytes.Repeat([]byte{1}, 4), "image/jpeg")
	assert.ErrorContains(t, err, "model offline")
}
