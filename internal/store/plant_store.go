package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/live"
)

const plantColumns = `id, name, species, watering_frequency_days, last_watered, photo_uri, instructions, display_order`

// PlantStore is the data-access layer for the plants table. When a broker is
// attached every committed write is published on live.TablePlants.
type PlantStore struct {
	db      *sql.DB
	changes *live.Broker
}

func NewPlantStore(db *sql.DB, changes *live.Broker) *PlantStore {
	if changes == nil {
		changes = live.NewBroker()
	}
	return &PlantStore{db: db, changes: changes}
}

// Changes returns the broker writes are published on.
func (s *PlantStore) Changes() *live.Broker {
	return s.changes
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*domain.Plant, error) {
	p := &domain.Plant{}
	var photo, instructions sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Species, &p.WateringFrequencyDays, &p.LastWatered, &photo, &instructions, &p.DisplayOrder); err != nil {
		return nil, err
	}
	if photo.Valid {
		p.PhotoURI = &photo.String
	}
	if instructions.Valid {
		p.Instructions = &instructions.String
	}
	return p, nil
}

func (s *PlantStore) publish(ids ...int64) {
	s.changes.Publish(live.Change{Table: live.TablePlants, IDs: ids})
}

// List returns every plant in the default display ordering.
func (s *PlantStore) List(ctx context.Context) ([]*domain.Plant, error) {
	return s.query(ctx, `SELECT `+plantColumns+` FROM plants ORDER BY display_order ASC, name ASC`)
}

// ListForWatering returns every plant ordered for the needs-water view.
func (s *PlantStore) ListForWatering(ctx context.Context) ([]*domain.Plant, error) {
	return s.query(ctx, `SELECT `+plantColumns+` FROM plants ORDER BY display_order ASC, last_watered ASC`)
}

func (s *PlantStore) query(ctx context.Context, q string) ([]*domain.Plant, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	plants := make([]*domain.Plant, 0)
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		plants = append(plants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plants: %w", err)
	}

	return plants, nil
}

// GetByID returns nil, nil when no plant has id.
func (s *PlantStore) GetByID(ctx context.Context, id int64) (*domain.Plant, error) {
	p, err := scanPlant(s.db.QueryRowContext(ctx, `
		SELECT `+plantColumns+` FROM plants WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}

	return p, nil
}

// Create inserts p and returns the assigned id. p.ID is ignored.
func (s *PlantStore) Create(ctx context.Context, p *domain.Plant) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO plants (name, species, watering_frequency_days, last_watered, photo_uri, instructions, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Species, p.WateringFrequencyDays, p.LastWatered, p.PhotoURI, p.Instructions, p.DisplayOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to create plant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.publish(id)
	return id, nil
}

// CreateMany inserts plants in one transaction. A plant with a non-zero ID
// replaces any existing row with that id.
func (s *PlantStore) CreateMany(ctx context.Context, plants []*domain.Plant) ([]int64, error) {
	ids := make([]int64, 0, len(plants))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range plants {
			var id any
			if p.ID != 0 {
				id = p.ID
			}
			result, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO plants (id, name, species, watering_frequency_days, last_watered, photo_uri, instructions, display_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, p.Name, p.Species, p.WateringFrequencyDays, p.LastWatered, p.PhotoURI, p.Instructions, p.DisplayOrder)
			if err != nil {
				return fmt.Errorf("failed to create plant %q: %w", p.Name, err)
			}
			newID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
			ids = append(ids, newID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		s.publish(ids...)
	}
	return ids, nil
}

const updatePlant = `
	UPDATE plants
	SET name = ?, species = ?, watering_frequency_days = ?, last_watered = ?, photo_uri = ?, instructions = ?, display_order = ?
	WHERE id = ?
`

// Update writes every column of p. Updating a missing id is a no-op.
func (s *PlantStore) Update(ctx context.Context, p *domain.Plant) error {
	result, err := s.db.ExecContext(ctx, updatePlant,
		p.Name, p.Species, p.WateringFrequencyDays, p.LastWatered, p.PhotoURI, p.Instructions, p.DisplayOrder, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update plant: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.publish(p.ID)
	}
	return nil
}

// UpdateMany writes all plants in one transaction.
func (s *PlantStore) UpdateMany(ctx context.Context, plants []*domain.Plant) error {
	if len(plants) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(plants))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range plants {
			if _, err := tx.ExecContext(ctx, updatePlant,
				p.Name, p.Species, p.WateringFrequencyDays, p.LastWatered, p.PhotoURI, p.Instructions, p.DisplayOrder, p.ID); err != nil {
				return fmt.Errorf("failed to update plant %d: %w", p.ID, err)
			}
			ids = append(ids, p.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ids...)
	return nil
}

// UpdateLastWatered sets last_watered for id. It reports whether a row
// matched.
func (s *PlantStore) UpdateLastWatered(ctx context.Context, id, lastWatered int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plants SET last_watered = ? WHERE id = ?
	`, lastWatered, id)
	if err != nil {
		return false, fmt.Errorf("failed to update last watered: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		s.publish(id)
	}
	return n > 0, nil
}

// Delete removes the plant with id. Deleting a missing id is a no-op.
func (s *PlantStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM plants WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plant: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.publish(id)
	}
	return nil
}

func (s *PlantStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plants`); err != nil {
		return fmt.Errorf("failed to delete plants: %w", err)
	}

	s.publish()
	return nil
}

// MaxDisplayOrder returns the largest display_order. ok is false when the
// table is empty.
func (s *PlantStore) MaxDisplayOrder(ctx context.Context) (order int, ok bool, err error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(display_order) FROM plants`).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("failed to get max display order: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (s *PlantStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to roll back transaction", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
