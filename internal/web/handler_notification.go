package web

import (
	"net/http"

	"github.com/vbonduro/plantpal/internal/logging"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		http.NotFound(w, r)
		return
	}

	notifications, err := s.inbox.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list reminders", http.StatusInternalServerError)
		s.logger.Error("list notifications failed", logging.Error(err))
		return
	}

	if err := s.renderPage(w, http.StatusOK,
		map[string]any{"Notifications": notifications, "ActiveNav": "notifications"},
		"base.html", "pages/notifications.html",
	); err != nil {
		s.logger.Error("render page failed", logging.Error(err))
	}
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		http.NotFound(w, r)
		return
	}

	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := s.inbox.Dismiss(r.Context(), id); err != nil {
		http.Error(w, "failed to dismiss reminder", http.StatusInternalServerError)
		s.logger.Error("dismiss notification failed", logging.PlantID(id), logging.Error(err))
		return
	}

	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
