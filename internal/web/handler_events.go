package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
)

type plantEvent struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Species      string `json:"species"`
	Status       string `json:"status"`
	NeedsWater   bool   `json:"needs_water"`
	DisplayOrder int    `json:"display_order"`
	HasPhoto     bool   `json:"has_photo"`
}

// handleEvents streams the plant list as server-sent events. A "plants" event
// with the full list is sent on connect and after every change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for plants := range s.service.WatchPlants(r.Context()) {
		now := s.service.Now()
		events := make([]plantEvent, 0, len(plants))
		for _, p := range plants {
			events = append(events, plantEvent{
				ID:           p.ID,
				Name:         p.Name,
				Species:      p.Species,
				Status:       domain.ListStatusText(now, p),
				NeedsWater:   domain.NeedsWater(now, p),
				DisplayOrder: p.DisplayOrder,
				HasPhoto:     p.HasPhoto(),
			})
		}

		payload, err := json.Marshal(events)
		if err != nil {
			s.logger.Error("encode plants event failed", logging.Error(err))
			return
		}
		if _, err := w.Write([]byte("event: plants\ndata: ")); err != nil {
			return
		}
		if _, err := w.Write(payload); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
