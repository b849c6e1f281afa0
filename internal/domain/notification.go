package domain

import "time"

// NotificationChannel groups notifications of one kind.
type NotificationChannel struct {
	ID          string
	Name        string
	Description string
}

// Notification is a local notification. ID is the plant id, so showing a
// notification with an existing ID replaces the previous one.
type Notification struct {
	ID        int64
	ChannelID string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
