package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/counseling-api/internal/models"
)

const slotColumns = `id, consultant_id, day_of_week, start_time, end_time, created_at, updated_at`

const vacationColumns = `id, consultant_id, date, vacation_type, start_time, end_time, reason, created_at, updated_at`

// AvailabilityRepository persists recurring weekly slots and vacation
// exceptions for consultants.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// CreateSlot inserts a recurring availability slot.
func (r *AvailabilityRepository) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO availability_slots (id, consultant_id, day_of_week, start_time, end_time, created_at, updated_at)
        VALUES (:id, :consultant_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}
	return nil
}

// FindSlotByID returns one slot.
func (r *AvailabilityRepository) FindSlotByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_slots WHERE id = $1`, slotColumns)
	var slot models.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlotsByConsultant returns all recurring slots for a consultant.
func (r *AvailabilityRepository) ListSlotsByConsultant(ctx context.Context, consultantID string) ([]models.AvailabilitySlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_slots WHERE consultant_id = $1
        ORDER BY day_of_week, start_time`, slotColumns)
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, consultantID); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByConsultantAndDay returns the slots covering one weekday.
func (r *AvailabilityRepository) ListSlotsByConsultantAndDay(ctx context.Context, consultantID string, day models.DayOfWeek) ([]models.AvailabilitySlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_slots WHERE consultant_id = $1 AND day_of_week = $2
        ORDER BY start_time`, slotColumns)
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, consultantID, day); err != nil {
		return nil, fmt.Errorf("list availability slots for %s: %w", day, err)
	}
	return slots, nil
}

// UpdateSlot persists changes to a slot's window.
func (r *AvailabilityRepository) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_slots SET day_of_week = :day_of_week, start_time = :start_time,
        end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update availability slot %s: %w", slot.ID, err)
	}
	return nil
}

// DeleteSlot removes a recurring slot.
func (r *AvailabilityRepository) DeleteSlot(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability slot %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateVacation inserts a vacation exception.
func (r *AvailabilityRepository) CreateVacation(ctx context.Context, vacation *models.VacationException) error {
	if vacation.ID == "" {
		vacation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	vacation.CreatedAt = now
	vacation.UpdatedAt = now
	const query = `INSERT INTO vacation_exceptions (id, consultant_id, date, vacation_type, start_time, end_time, reason, created_at, updated_at)
        VALUES (:id, :consultant_id, :date, :vacation_type, :start_time, :end_time, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, vacation); err != nil {
		return fmt.Errorf("create vacation exception: %w", err)
	}
	return nil
}

// FindVacationByID returns one vacation exception.
func (r *AvailabilityRepository) FindVacationByID(ctx context.Context, id string) (*models.VacationException, error) {
	query := fmt.Sprintf(`SELECT %s FROM vacation_exceptions WHERE id = $1`, vacationColumns)
	var vacation models.VacationException
	if err := r.db.GetContext(ctx, &vacation, query, id); err != nil {
		return nil, err
	}
	return &vacation, nil
}

// ListVacationsByConsultantAndDate returns the exceptions covering one date.
func (r *AvailabilityRepository) ListVacationsByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.VacationException, error) {
	query := fmt.Sprintf(`SELECT %s FROM vacation_exceptions WHERE consultant_id = $1 AND date = $2
        ORDER BY created_at`, vacationColumns)
	var vacations []models.VacationException
	if err := r.db.SelectContext(ctx, &vacations, query, consultantID, date); err != nil {
		return nil, fmt.Errorf("list vacations for %s on %s: %w", consultantID, date, err)
	}
	return vacations, nil
}

// ListVacationsByConsultant returns exceptions inside a date range.
func (r *AvailabilityRepository) ListVacationsByConsultant(ctx context.Context, consultantID, from, to string) ([]models.VacationException, error) {
	query := fmt.Sprintf(`SELECT %s FROM vacation_exceptions WHERE consultant_id = $1 AND date >= $2 AND date <= $3
        ORDER BY date`, vacationColumns)
	var vacations []models.VacationException
	if err := r.db.SelectContext(ctx, &vacations, query, consultantID, from, to); err != nil {
		return nil, fmt.Errorf("list vacations for %s: %w", consultantID, err)
	}
	return vacations, nil
}

// DeleteVacation removes a vacation exception.
func (r *AvailabilityRepository) DeleteVacation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vacation_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vacation exception %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
