package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/photostore"
	"github.com/vbonduro/plantpal/internal/vision"
)

// ErrVisionDisabled is returned by IdentifyPlant when no backend is set.
var ErrVisionDisabled = errors.New("plant identification is not configured")

// plantRepository is the subset of store.PlantStore that PlantService requires.
type plantRepository interface {
	List(ctx context.Context) ([]*domain.Plant, error)
	ListForWatering(ctx context.Context) ([]*domain.Plant, error)
	GetByID(ctx context.Context, id int64) (*domain.Plant, error)
	Create(ctx context.Context, p *domain.Plant) (int64, error)
	CreateMany(ctx context.Context, plants []*domain.Plant) ([]int64, error)
	Update(ctx context.Context, p *domain.Plant) error
	UpdateMany(ctx context.Context, plants []*domain.Plant) error
	UpdateLastWatered(ctx context.Context, id, lastWatered int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	MaxDisplayOrder(ctx context.Context) (int, bool, error)
	WatchAll(ctx context.Context) <-chan []*domain.Plant
	WatchForWatering(ctx context.Context) <-chan []*domain.Plant
	WatchByID(ctx context.Context, id int64) <-chan *domain.Plant
}

// Trigger requests a reminder sweep. *reminder.Scheduler implements it.
type Trigger interface {
	TriggerNow()
}

type noopTrigger struct{}

func (noopTrigger) TriggerNow() {}

// Dismisser clears shown reminders. *notify.Inbox implements it.
type Dismisser interface {
	Dismiss(ctx context.Context, plantID int64) error
	DismissAll(ctx context.Context) error
}

type PlantService struct {
	plants   plantRepository
	photos   photostore.PhotoStore
	vision   vision.Identifier
	reminder Trigger
	inbox    Dismisser
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewPlantService wires the service. identifier and reminder may be nil.
func NewPlantService(
	plants plantRepository,
	photos photostore.PhotoStore,
	identifier vision.Identifier,
	reminder Trigger,
	clock clockwork.Clock,
	logger *slog.Logger,
) *PlantService {
	if reminder == nil {
		reminder = noopTrigger{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlantService{
		plants:   plants,
		photos:   photos,
		vision:   identifier,
		reminder: reminder,
		clock:    clock,
		logger:   logger,
	}
}

// SetReminder replaces the sweep trigger. It exists because the scheduler
// and the service are built from each other's dependencies.
func (s *PlantService) SetReminder(t Trigger) {
	if t == nil {
		t = noopTrigger{}
	}
	s.reminder = t
}

// SetInbox makes deletions clear the deleted plants' reminders. nil disables
// the cleanup.
func (s *PlantService) SetInbox(d Dismisser) {
	s.inbox = d
}

// Now is the service clock in epoch milliseconds.
func (s *PlantService) Now() int64 {
	return domain.NowMillis(s.clock.Now())
}

func (s *PlantService) ListPlants(ctx context.Context) ([]*domain.Plant, error) {
	return s.plants.List(ctx)
}

func (s *PlantService) WatchPlants(ctx context.Context) <-chan []*domain.Plant {
	return s.plants.WatchAll(ctx)
}

// GetPlant returns nil, nil when the plant does not exist.
func (s *PlantService) GetPlant(ctx context.Context, id int64) (*domain.Plant, error) {
	return s.plants.GetByID(ctx, id)
}

func (s *PlantService) WatchPlant(ctx context.Context, id int64) <-chan *domain.Plant {
	return s.plants.WatchByID(ctx, id)
}

// PlantsNeedingWater returns thirsty plants in watering order.
func (s *PlantService) PlantsNeedingWater(ctx context.Context) ([]*domain.Plant, error) {
	plants, err := s.plants.ListForWatering(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	return domain.FilterNeedingWater(s.Now(), plants), nil
}

// WatchPlantsNeedingWater re-filters each watering-order snapshot at the
// time it arrives.
func (s *PlantService) WatchPlantsNeedingWater(ctx context.Context) <-chan []*domain.Plant {
	in := s.plants.WatchForWatering(ctx)
	out := make(chan []*domain.Plant)
	go func() {
		defer close(out)
		for plants := range in {
			select {
			case out <- domain.FilterNeedingWater(s.Now(), plants):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// AddPlant appends p after every existing plant and returns the new id.
func (s *PlantService) AddPlant(ctx context.Context, p *domain.Plant) (int64, error) {
	maxOrder, ok, err := s.plants.MaxDisplayOrder(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		maxOrder = -1
	}

	np := p.Clone()
	np.ID = 0
	np.DisplayOrder = maxOrder + 1

	id, err := s.plants.Create(ctx, np)
	if err != nil {
		return 0, err
	}
	s.logger.Info("plant added", logging.PlantID(id), "name", np.Name, "display_order", np.DisplayOrder)

	s.reminder.TriggerNow()
	return id, nil
}

// InsertPlants stores plants as given, without assigning display order.
func (s *PlantService) InsertPlants(ctx context.Context, plants []*domain.Plant) error {
	if len(plants) == 0 {
		return nil
	}
	if _, err := s.plants.CreateMany(ctx, plants); err != nil {
		return err
	}
	s.reminder.TriggerNow()
	return nil
}

func (s *PlantService) UpdatePlant(ctx context.Context, p *domain.Plant) error {
	if err := s.plants.Update(ctx, p); err != nil {
		return err
	}
	s.reminder.TriggerNow()
	return nil
}

// UpdateWateringSchedule changes the interval of plant id. Missing ids are
// ignored.
func (s *PlantService) UpdateWateringSchedule(ctx context.Context, id int64, days int) error {
	p, err := s.plants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get plant: %w", err)
	}
	if p == nil {
		return nil
	}

	p.WateringFrequencyDays = days
	if err := s.plants.Update(ctx, p); err != nil {
		return err
	}
	s.reminder.TriggerNow()
	return nil
}

// WaterPlant records a watering at the current time. Missing ids are
// ignored.
func (s *PlantService) WaterPlant(ctx context.Context, id int64) error {
	ok, err := s.plants.UpdateLastWatered(ctx, id, s.Now())
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("water request for missing plant", logging.PlantID(id))
		return nil
	}
	s.logger.Info("plant watered", logging.PlantID(id))

	s.reminder.TriggerNow()
	return nil
}

// DeletePlant removes plant id and its shown reminder and, best effort, its
// managed photo file.
func (s *PlantService) DeletePlant(ctx context.Context, id int64) error {
	p, err := s.plants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get plant: %w", err)
	}
	if p == nil {
		return nil
	}

	if p.HasPhoto() {
		s.deletePhoto(ctx, *p.PhotoURI)
	}

	if err := s.plants.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("plant deleted", logging.PlantID(id))

	if s.inbox != nil {
		if err := s.inbox.Dismiss(ctx, id); err != nil {
			s.logger.Warn("failed to clear reminder", logging.PlantID(id), logging.Error(err))
		}
	}

	s.reminder.TriggerNow()
	return nil
}

func (s *PlantService) deletePhoto(ctx context.Context, uri string) {
	if s.photos == nil {
		return
	}
	key, err := s.photos.KeyFromURI(uri)
	if err != nil {
		return
	}
	if err := s.photos.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		s.logger.Warn("failed to delete photo file", logging.StorageKey(key), logging.Error(err))
	}
}

func (s *PlantService) DeleteAllPlants(ctx context.Context) error {
	if err := s.plants.DeleteAll(ctx); err != nil {
		return err
	}
	if s.inbox != nil {
		if err := s.inbox.DismissAll(ctx); err != nil {
			s.logger.Warn("failed to clear reminders", logging.Error(err))
		}
	}
	s.reminder.TriggerNow()
	return nil
}

// MovePlantUp swaps plant id with its predecessor in visible.
func (s *PlantService) MovePlantUp(ctx context.Context, id int64, visible []*domain.Plant) error {
	return s.move(ctx, id, visible, -1)
}

// MovePlantDown swaps plant id with its successor in visible.
func (s *PlantService) MovePlantDown(ctx context.Context, id int64, visible []*domain.Plant) error {
	return s.move(ctx, id, visible, 1)
}

// move gives the moving plant its neighbour's list index as display order
// and the neighbour the moving plant's index. Both rows are written together.
func (s *PlantService) move(ctx context.Context, id int64, visible []*domain.Plant, step int) error {
	i := domain.IndexOf(visible, id)
	if i < 0 {
		return nil
	}
	j := i + step
	if j < 0 || j >= len(visible) {
		return nil
	}

	moving := visible[i].Clone()
	neighbour := visible[j].Clone()
	moving.DisplayOrder = j
	neighbour.DisplayOrder = i

	if err := s.plants.UpdateMany(ctx, []*domain.Plant{moving, neighbour}); err != nil {
		return err
	}
	s.reminder.TriggerNow()
	return nil
}

// SavePhoto stores image data and returns the URI to put on a plant.
func (s *PlantService) SavePhoto(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.photos == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}
	key, err := s.photos.Save(ctx, "plant", mimeType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", logging.StorageKey(key), "bytes", len(data))
	return s.photos.URI(key), nil
}

// IdentifyPlant asks the vision backend for form suggestions.
func (s *PlantService) IdentifyPlant(ctx context.Context, data []byte, mimeType string) (*vision.Identification, error) {
	if s.vision == nil {
		return nil, ErrVisionDisabled
	}
	start := s.clock.Now()
	id, err := s.vision.Identify(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to identify plant: %w", err)
	}
	s.logger.Info("plant identified", "name", id.Name, "species", id.Species,
		logging.DurationMS(s.clock.Since(start).Milliseconds()))
	return id, nil
}

// PlantPhoto opens the managed photo of plant id. It returns
// photostore.ErrNotFound when the plant or its photo is missing, and
// photostore.ErrForeignURI when the photo is not a managed file.
func (s *PlantService) PlantPhoto(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	p, err := s.plants.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get plant: %w", err)
	}
	if p == nil || !p.HasPhoto() || s.photos == nil {
		return nil, "", photostore.ErrNotFound
	}
	key, err := s.photos.KeyFromURI(*p.PhotoURI)
	if err != nil {
		return nil, "", err
	}
	return s.photos.Get(ctx, key)
}
