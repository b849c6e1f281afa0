// Package metrics records reminder sweep and notification outcomes.
package metrics

import "time"

type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder is the observability hook set used by the reminder sweep.
type Recorder interface {
	ObserveSweepDuration(d time.Duration)
	IncSweepResult(result ResultLabel)
	SetPlantsNeedingWater(n int)
	IncNotificationResult(result ResultLabel)
	IncSweepRetry()
}

// NoopRecorder is the default when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveSweepDuration(time.Duration) {}
func (NoopRecorder) IncSweepResult(ResultLabel) {}
func (NoopRecorder) SetPlantsNeedingWater(int) {}
func (NoopRecorder) IncNotificationResult(ResultLabel) {}
func (NoopRecorder) IncSweepRetry() {}
