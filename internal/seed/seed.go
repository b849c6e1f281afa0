// Package seed inserts the bundled sample plants into an empty database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/plantpal/internal/domain"
)

//go:embed plants.yaml
var samplePlants []byte

type file struct {
	Plants []entry `yaml:"plants"`
}

type entry struct {
	Name                  string  `yaml:"name"`
	Species               string  `yaml:"species"`
	WateringFrequencyDays int     `yaml:"watering_frequency_days"`
	WateredDaysAgo        int     `yaml:"watered_days_ago"`
	DisplayOrder          int     `yaml:"display_order"`
	Instructions          *string `yaml:"instructions"`
}

// Target is what Seed writes to. *service.PlantService implements it.
type Target interface {
	ListPlants(ctx context.Context) ([]*domain.Plant, error)
	InsertPlants(ctx context.Context, plants []*domain.Plant) error
}

// Parse decodes a sample file, resolving watered_days_ago against now.
func Parse(data []byte, now time.Time) ([]*domain.Plant, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sample plants: %w", err)
	}

	plants := make([]*domain.Plant, 0, len(f.Plants))
	for _, e := range f.Plants {
		plants = append(plants, &domain.Plant{
			Name:                  e.Name,
			Species:               e.Species,
			WateringFrequencyDays: e.WateringFrequencyDays,
			LastWatered:           now.UnixMilli() - int64(e.WateredDaysAgo)*domain.DayMillis,
			Instructions:          e.Instructions,
			DisplayOrder:          e.DisplayOrder,
		})
	}
	return plants, nil
}

// Seed inserts the sample plants when the table is empty. Ids are assigned by
// the store, so existing rows are never replaced. It reports whether anything
// was inserted.
func Seed(ctx context.Context, t Target, now time.Time) (bool, error) {
	plants, err := Parse(samplePlants, now)
	if err != nil {
		return false, err
	}
	if len(plants) == 0 {
		return false, nil
	}

	existing, err := t.ListPlants(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing plants: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	if err := t.InsertPlants(ctx, plants); err != nil {
		return false, fmt.Errorf("failed to insert sample plants: %w", err)
	}
	return true, nil
}
