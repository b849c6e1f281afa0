package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the layout of the last-watered date input.
const DateLayout = "2006-01-02"

// PlantForm carries raw add/edit form input. Validation of plant fields
// happens here and nowhere else; the store accepts whatever it is given.
type PlantForm struct {
	Name              string
	Species           string
	WateringFrequency string
	LastWatered       string
	PhotoURI          string
	Instructions      string
}

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, v[f])
	}
	return strings.Join(msgs, "; ")
}

// FormFromPlant pre-fills a form for editing.
func FormFromPlant(p *Plant) PlantForm {
	f := PlantForm{
		Name:              p.Name,
		Species:           p.Species,
		WateringFrequency: strconv.Itoa(p.WateringFrequencyDays),
		LastWatered:       p.LastWateredTime().Format(DateLayout),
	}
	if p.PhotoURI != nil {
		f.PhotoURI = *p.PhotoURI
	}
	if p.Instructions != nil {
		f.Instructions = *p.Instructions
	}
	return f
}

// Validate returns nil when the form can be saved.
func (f PlantForm) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	if strings.TrimSpace(f.Species) == "" {
		errs["species"] = "Species is required"
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.WateringFrequency)); err != nil || n <= 0 {
		errs["watering_frequency"] = "Watering frequency must be a positive number of days"
	}
	if utf8.RuneCountInString(f.Instructions) > MaxInstructionsLen {
		errs["instructions"] = "Instructions must be 600 characters or fewer"
	}
	if strings.TrimSpace(f.LastWatered) != "" {
		if _, err := time.ParseInLocation(DateLayout, strings.TrimSpace(f.LastWatered), time.Local); err != nil {
			errs["last_watered"] = "Last watered must be a date"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Apply copies validated form values onto p. An empty last-watered date keeps
// p.LastWatered when it is set, and falls back to now otherwise. A date equal
// to the one already stored keeps the stored time of day.
func (f PlantForm) Apply(p *Plant, now time.Time) {
	p.Name = strings.TrimSpace(f.Name)
	p.Species = strings.TrimSpace(f.Species)
	p.WateringFrequencyDays, _ = strconv.Atoi(strings.TrimSpace(f.WateringFrequency))
	p.PhotoURI = StringPtr(strings.TrimSpace(f.PhotoURI))
	if strings.TrimSpace(f.Instructions) == "" {
		p.Instructions = nil
	} else {
		instr := f.Instructions
		p.Instructions = &instr
	}

	date := strings.TrimSpace(f.LastWatered)
	switch {
	case date == "" && p.LastWatered == 0:
		p.LastWatered = now.UnixMilli()
	case date == "":
	case p.LastWatered != 0 && p.LastWateredTime().Format(DateLayout) == date:
	default:
		day, _ := time.ParseInLocation(DateLayout, date, time.Local)
		if day.Format(DateLayout) == now.Format(DateLayout) {
			p.LastWatered = now.UnixMilli()
		} else {
			p.LastWatered = day.UnixMilli()
		}
	}
}
