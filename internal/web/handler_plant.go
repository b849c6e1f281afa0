package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/logging"
)

const filterThirsty = "thirsty"

// plantRow is one entry of the plant list.
type plantRow struct {
	Plant       *domain.Plant
	Status      string
	NeedsWater  bool
	CanMoveUp   bool
	CanMoveDown bool
	Next        string
	FilterQuery string
}

type formPage struct {
	ActiveNav     string
	PlantID       int64
	Form          domain.PlantForm
	Errors        domain.ValidationErrors
	VisionEnabled bool
}

// visiblePlants returns the list the user is looking at: every plant, or only
// the thirsty ones for the needs-water filter.
func (s *Server) visiblePlants(r *http.Request, filter string) ([]*domain.Plant, error) {
	if filter == filterThirsty {
		return s.service.PlantsNeedingWater(r.Context())
	}
	return s.service.ListPlants(r.Context())
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")

	plants, err := s.visiblePlants(r, filter)
	if err != nil {
		http.Error(w, "failed to list plants", http.StatusInternalServerError)
		s.logger.Error("list plants failed", logging.Error(err))
		return
	}
	thirsty, err := s.service.PlantsNeedingWater(r.Context())
	if err != nil {
		http.Error(w, "failed to list plants", http.StatusInternalServerError)
		s.logger.Error("list thirsty plants failed", logging.Error(err))
		return
	}

	now := s.service.Now()
	next, query, nav := "/plants", "", "plants"
	if filter == filterThirsty {
		next, query, nav = "/plants?filter=thirsty", "&filter=thirsty", "thirsty"
	}

	rows := make([]plantRow, 0, len(plants))
	for i, p := range plants {
		rows = append(rows, plantRow{
			Plant:       p,
			Status:      domain.ListStatusText(now, p),
			NeedsWater:  domain.NeedsWater(now, p),
			CanMoveUp:   i > 0,
			CanMoveDown: i < len(plants)-1,
			Next:        next,
			FilterQuery: query,
		})
	}

	if err := s.renderPage(w, http.StatusOK,
		map[string]any{
			"Rows":         rows,
			"NeedingWater": thirsty,
			"Thirsty":      filter == filterThirsty,
			"ActiveNav":    nav,
		},
		"base.html", "pages/plants.html", "partials/plant_row.html",
	); err != nil {
		s.logger.Error("render page failed", logging.Error(err))
	}
}

func (s *Server) handleNewPlant(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, formPage{
		Form: domain.PlantForm{LastWatered: time.UnixMilli(s.service.Now()).Format(domain.DateLayout)},
	})
}

func (s *Server) renderForm(w http.ResponseWriter, status int, page formPage) {
	page.ActiveNav = "plants"
	page.VisionEnabled = s.visionEnabled
	if err := s.renderPage(w, status, page, "base.html", "pages/plant_form.html"); err != nil {
		s.logger.Error("render page failed", logging.Error(err))
	}
}

// readPlantForm parses the add/edit form, multipart or url-encoded, and
// returns the optional uploaded photo.
func (s *Server) readPlantForm(r *http.Request) (domain.PlantForm, []byte, error) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return domain.PlantForm{}, nil, fmt.Errorf("failed to parse form: %w", err)
	}

	f := domain.PlantForm{
		Name:              r.FormValue("name"),
		Species:           r.FormValue("species"),
		WateringFrequency: r.FormValue("watering_frequency"),
		LastWatered:       r.FormValue("last_watered"),
		Instructions:      r.FormValue("instructions"),
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		return f, nil, nil
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return f, nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return f, data, nil
}

// attachPhoto stores an uploaded photo and records its URI on the form. An
// empty upload is ignored.
func (s *Server) attachPhoto(r *http.Request, form *domain.PlantForm, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return http.StatusBadRequest, fmt.Errorf("unsupported image format")
	}
	uri, err := s.service.SavePhoto(r.Context(), data, mimeType)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	form.PhotoURI = uri
	return 0, nil
}

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	form, photo, err := s.readPlantForm(r)
	if err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	if err := form.Validate(); err != nil {
		var verrs domain.ValidationErrors
		errors.As(err, &verrs)
		s.renderForm(w, http.StatusUnprocessableEntity, formPage{Form: form, Errors: verrs})
		return
	}

	if status, err := s.attachPhoto(r, &form, photo); err != nil {
		http.Error(w, err.Error(), status)
		s.logger.Error("save photo failed", logging.Error(err))
		return
	}

	p := &domain.Plant{}
	form.Apply(p, time.UnixMilli(s.service.Now()))

	id, err := s.service.AddPlant(r.Context(), p)
	if err != nil {
		http.Error(w, "failed to add plant", http.StatusInternalServerError)
		s.logger.Error("add plant failed", logging.Error(err))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/plants/%d", id), http.StatusSeeOther)
}

func (s *Server) handlePlantDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlant(w, r)
	if !ok {
		return
	}

	now := s.service.Now()
	var instructions template.HTML
	if p.Instructions != nil {
		instructions = s.renderMarkdown(*p.Instructions)
	}

	if err := s.renderPage(w, http.StatusOK,
		map[string]any{
			"Plant":        p,
			"Status":       domain.StatusText(now, p),
			"NeedsWater":   domain.NeedsWater(now, p),
			"Instructions": instructions,
			"ActiveNav":    "plants",
		},
		"base.html", "pages/plant_detail.html",
	); err != nil {
		s.logger.Error("render page failed", logging.Error(err))
	}
}

func (s *Server) handleEditPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlant(w, r)
	if !ok {
		return
	}
	s.renderForm(w, http.StatusOK, formPage{PlantID: p.ID, Form: domain.FormFromPlant(p)})
}

func (s *Server) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlant(w, r)
	if !ok {
		return
	}

	form, photo, err := s.readPlantForm(r)
	if err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	if p.PhotoURI != nil && r.FormValue("remove_photo") == "" {
		form.PhotoURI = *p.PhotoURI
	}

	if err := form.Validate(); err != nil {
		var verrs domain.ValidationErrors
		errors.As(err, &verrs)
		s.renderForm(w, http.StatusUnprocessableEntity, formPage{PlantID: p.ID, Form: form, Errors: verrs})
		return
	}

	if status, err := s.attachPhoto(r, &form, photo); err != nil {
		http.Error(w, err.Error(), status)
		s.logger.Error("save photo failed", logging.PlantID(p.ID), logging.Error(err))
		return
	}

	form.Apply(p, time.UnixMilli(s.service.Now()))
	if err := s.service.UpdatePlant(r.Context(), p); err != nil {
		http.Error(w, "failed to update plant", http.StatusInternalServerError)
		s.logger.Error("update plant failed", logging.PlantID(p.ID), logging.Error(err))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/plants/%d", p.ID), http.StatusSeeOther)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	if err := s.service.DeletePlant(r.Context(), id); err != nil {
		http.Error(w, "failed to delete plant", http.StatusInternalServerError)
		s.logger.Error("delete plant failed", logging.PlantID(id), logging.Error(err))
		return
	}

	if r.Method == http.MethodDelete {
		w.Header().Set("HX-Redirect", "/plants")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/plants", http.StatusSeeOther)
}

func (s *Server) handleWaterPlant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	if err := s.service.WaterPlant(r.Context(), id); err != nil {
		http.Error(w, "failed to water plant", http.StatusInternalServerError)
		s.logger.Error("water plant failed", logging.PlantID(id), logging.Error(err))
		return
	}

	http.Redirect(w, r, safeNext(r.FormValue("next"), "/plants"), http.StatusSeeOther)
}

func (s *Server) handleMovePlant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	filter := r.URL.Query().Get("filter")
	visible, err := s.visiblePlants(r, filter)
	if err != nil {
		http.Error(w, "failed to list plants", http.StatusInternalServerError)
		s.logger.Error("list plants failed", logging.Error(err))
		return
	}

	switch r.URL.Query().Get("dir") {
	case "up":
		err = s.service.MovePlantUp(r.Context(), id, visible)
	case "down":
		err = s.service.MovePlantDown(r.Context(), id, visible)
	default:
		http.Error(w, "dir must be up or down", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "failed to move plant", http.StatusInternalServerError)
		s.logger.Error("move plant failed", logging.PlantID(id), logging.Error(err))
		return
	}

	next := "/plants"
	if filter == filterThirsty {
		next = "/plants?filter=thirsty"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// loadPlant resolves {id}. It writes the error response and returns false
// when the id is invalid or unknown.
func (s *Server) loadPlant(w http.ResponseWriter, r *http.Request) (*domain.Plant, bool) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return nil, false
	}

	p, err := s.service.GetPlant(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to get plant", http.StatusInternalServerError)
		s.logger.Error("get plant failed", logging.PlantID(id), logging.Error(err))
		return nil, false
	}
	if p == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return p, true
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
