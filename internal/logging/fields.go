package logging

import "log/slog"

// Canonical log field names shared across packages.
const (
	KeyPlantID    = "plant_id"
	KeyRunID      = "run_id"
	KeyJob        = "job"
	KeyAttempt    = "attempt"
	KeyStorageKey = "storage_key"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func PlantID(id int64) slog.Attr { return slog.Int64(KeyPlantID, id) }
func RunID(id string) slog.Attr { return slog.String(KeyRunID, id) }
func Job(name string) slog.Attr { return slog.String(KeyJob, name) }
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }
func StorageKey(key string) slog.Attr { return slog.String(KeyStorageKey, key) }
func DurationMS(ms int64) slog.Attr { return slog.Int64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
