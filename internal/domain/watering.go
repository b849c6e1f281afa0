package domain

import (
	"fmt"
	"time"
)

// DayMillis is the length of one watering day. Days are counted on raw
// milliseconds with no calendar or timezone adjustment.
const DayMillis int64 = 86_400_000

// NowMillis converts t to milliseconds since the epoch.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// DaysSince returns the whole days elapsed between the last watering and now,
// truncated toward zero.
func DaysSince(now int64, p *Plant) int64 {
	return (now - p.LastWatered) / DayMillis
}

// NeedsWater reports whether at least WateringFrequencyDays whole days have
// passed since the plant was last watered.
func NeedsWater(now int64, p *Plant) bool {
	return DaysSince(now, p) >= int64(p.WateringFrequencyDays)
}

// DaysUntil returns the whole days left until the next watering is due,
// measured from the due instant and truncated toward zero. Zero means due
// today; negative values mean overdue.
func DaysUntil(now int64, p *Plant) int64 {
	return (p.LastWatered + int64(p.WateringFrequencyDays)*DayMillis - now) / DayMillis
}

// StatusText renders DaysUntil for the detail view.
func StatusText(now int64, p *Plant) string {
	return dueText(DaysUntil(now, p))
}

// ListStatusText renders the countdown shown in the plant list. A plant
// watered today whose schedule is already due reads "Watered today" instead of
// "Water today" or overdue.
func ListStatusText(now int64, p *Plant) string {
	until := DaysUntil(now, p)
	if DaysSince(now, p) == 0 && until <= 0 {
		return "Watered today"
	}
	return dueText(until)
}

func dueText(until int64) string {
	switch {
	case until < 0:
		overdue := -until
		if overdue == 1 {
			return "Overdue by 1 day"
		}
		return fmt.Sprintf("Overdue by %d days", overdue)
	case until == 0:
		return "Water today"
	case until == 1:
		return "Water tomorrow"
	default:
		return fmt.Sprintf("Water in %d days", until)
	}
}

// FilterNeedingWater returns the plants that need water at now, keeping the
// input order.
func FilterNeedingWater(now int64, plants []*Plant) []*Plant {
	out := make([]*Plant, 0, len(plants))
	for _, p := range plants {
		if NeedsWater(now, p) {
			out = append(out, p)
		}
	}
	return out
}
