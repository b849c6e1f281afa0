package notify

import (
	"context"
	"log/slog"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
)

// LogNotifier writes each notification as a structured log line.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) EnsureChannel(ctx context.Context, ch domain.NotificationChannel) error {
	l.logger.DebugContext(ctx, "notification channel ready", "channel", ch.ID)
	return nil
}

func (l *LogNotifier) Show(ctx context.Context, n domain.Notification) error {
	l.logger.InfoContext(ctx, "notification",
		logging.PlantID(n.ID),
		"channel", n.ChannelID,
		"title", n.Title,
		"body", n.Body,
	)
	return nil
}
