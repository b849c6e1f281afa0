package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/live"
)

// Inbox keeps shown notifications in the notifications table until they are
// dismissed. The web UI reads it.
type Inbox struct {
	db      *sql.DB
	clock   clockwork.Clock
	changes *live.Broker
}

func NewInbox(db *sql.DB, clock clockwork.Clock, changes *live.Broker) *Inbox {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if changes == nil {
		changes = live.NewBroker()
	}
	return &Inbox{db: db, clock: clock, changes: changes}
}

func (i *Inbox) EnsureChannel(ctx context.Context, ch domain.NotificationChannel) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO notification_channels (id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description
	`, ch.ID, ch.Name, ch.Description)
	if err != nil {
		return fmt.Errorf("failed to create notification channel: %w", err)
	}
	return nil
}

// Show upserts n by plant id. created_at is kept from the first showing.
func (i *Inbox) Show(ctx context.Context, n domain.Notification) error {
	now := i.clock.Now().UnixMilli()
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO notifications (plant_id, channel_id, title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(plant_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			title      = excluded.title,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.ID, n.ChannelID, n.Title, n.Body, now, now)
	if err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}

	i.changes.Publish(live.Change{Table: live.TableNotifications, IDs: []int64{n.ID}})
	return nil
}

// List returns pending notifications, most recently updated first.
func (i *Inbox) List(ctx context.Context) ([]*domain.Notification, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT plant_id, channel_id, title, body, created_at, updated_at
		FROM notifications
		ORDER BY updated_at DESC, plant_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		var created, updated int64
		if err := rows.Scan(&n.ID, &n.ChannelID, &n.Title, &n.Body, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.CreatedAt = time.UnixMilli(created)
		n.UpdatedAt = time.UnixMilli(updated)
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// Dismiss removes the notification for plant id. Missing ids are ignored.
func (i *Inbox) Dismiss(ctx context.Context, id int64) error {
	result, err := i.db.ExecContext(ctx, `DELETE FROM notifications WHERE plant_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss notification: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		i.changes.Publish(live.Change{Table: live.TableNotifications, IDs: []int64{id}})
	}
	return nil
}

// DismissAll clears the inbox.
func (i *Inbox) DismissAll(ctx context.Context) error {
	result, err := i.db.ExecContext(ctx, `DELETE FROM notifications`)
	if err != nil {
		return fmt.Errorf("failed to dismiss notifications: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		i.changes.Publish(live.Change{Table: live.TableNotifications})
	}
	return nil
}
