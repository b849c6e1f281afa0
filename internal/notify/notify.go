// Package notify shows local watering reminders. A Notifier is the only
// outward dependency of the reminder sweep.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/plantpal/internal/domain"
)

// DefaultChannel is the channel every watering reminder is posted on.
var DefaultChannel = domain.NotificationChannel{
	ID:          "watering_reminders",
	Name:        "Watering Reminders",
	Description: "Notifications for plant watering reminders",
}

const reminderBody = "Your plant needs watering today."

type Notifier interface {
	// EnsureChannel creates ch if needed. Calling it again is harmless.
	EnsureChannel(ctx context.Context, ch domain.NotificationChannel) error
	// Show displays n, replacing any notification with the same ID.
	Show(ctx context.Context, n domain.Notification) error
}

// WateringReminder builds the reminder for p. Its ID is the plant id, so a
// later reminder for the same plant replaces an earlier one.
func WateringReminder(p *domain.Plant) domain.Notification {
	return domain.Notification{
		ID:        p.ID,
		ChannelID: DefaultChannel.ID,
		Title:     fmt.Sprintf("Time to water %s!", p.Name),
		Body:      reminderBody,
	}
}

// Multi fans each call out to every notifier. All notifiers are called even
// when one fails; the failures are joined.
type Multi []Notifier

func (m Multi) EnsureChannel(ctx context.Context, ch domain.NotificationChannel) error {
	var errs []error
	for _, n := range m {
		if err := n.EnsureChannel(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Show(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
