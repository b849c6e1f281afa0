// Package reminder finds thirsty plants and raises one notification for
// each, on a daily schedule and on demand.
package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/metrics"
	"github.com/vbonduro/plantpal/internal/notify"
)

// PlantLister supplies plants in watering order.
type PlantLister interface {
	ListForWatering(ctx context.Context) ([]*domain.Plant, error)
}

// Result summarises one sweep.
type Result struct {
	RunID        string
	Checked      int
	NeedingWater int
	Notified     int
	Failed       int
}

type Sweeper struct {
	plants   PlantLister
	notifier notify.Notifier
	clock    clockwork.Clock
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewSweeper wires a sweeper. nil clock, recorder and logger fall back to the
// real clock, a no-op recorder and slog.Default.
func NewSweeper(plants PlantLister, notifier notify.Notifier, clock clockwork.Clock, recorder metrics.Recorder, logger *slog.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{plants: plants, notifier: notifier, clock: clock, recorder: recorder, logger: logger}
}

// Run performs one sweep. A failure to read plants is returned so the caller
// can retry. Failures to show a notification are logged and counted but do
// not fail the sweep.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := s.logger.With(logging.RunID(res.RunID))
	start := s.clock.Now()
	defer func() {
		s.recorder.ObserveSweepDuration(s.clock.Since(start))
	}()

	plants, err := s.plants.ListForWatering(ctx)
	if err != nil {
		s.recorder.IncSweepResult(metrics.ResultFailed)
		logger.Error("reminder sweep failed to load plants", logging.Error(err))
		return res, fmt.Errorf("failed to load plants: %w", err)
	}

	thirsty := domain.FilterNeedingWater(domain.NowMillis(s.clock.Now()), plants)
	res.Checked = len(plants)
	res.NeedingWater = len(thirsty)
	s.recorder.SetPlantsNeedingWater(len(thirsty))

	if len(thirsty) > 0 {
		if err := s.notifier.EnsureChannel(ctx, notify.DefaultChannel); err != nil {
			logger.Warn("failed to ensure notification channel", logging.Error(err))
		}
	}

	for _, p := range thirsty {
		if err := s.notifier.Show(ctx, notify.WateringReminder(p)); err != nil {
			res.Failed++
			s.recorder.IncNotificationResult(metrics.ResultFailed)
			logger.Warn("failed to show watering reminder", logging.PlantID(p.ID), logging.Error(err))
			continue
		}
		res.Notified++
		s.recorder.IncNotificationResult(metrics.ResultSuccess)
	}

	s.recorder.IncSweepResult(metrics.ResultSuccess)
	logger.Info("reminder sweep complete",
		"checked", res.Checked,
		"needing_water", res.NeedingWater,
		"notified", res.Notified,
		"failed", res.Failed,
	)
	return res, nil
}
